// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool limits the number of goroutines used by the executor to run independent ops concurrently.
package workerspool

import (
	"runtime"
)

// Pool of workers, created with New. Its parallelism can only be changed before tasks are started.
type Pool struct {
	maxParallelism int

	// slots holds one token per running task, when parallelism is limited.
	slots chan struct{}
}

// New returns a Pool limited to runtime.NumCPU() concurrent tasks.
func New() *Pool {
	p := &Pool{}
	p.SetMaxParallelism(runtime.NumCPU())
	return p
}

// IsEnabled returns whether tasks run in their own goroutines.
func (p *Pool) IsEnabled() bool {
	return p.maxParallelism != 0
}

// IsUnlimited returns whether every task is started immediately.
func (p *Pool) IsUnlimited() bool {
	return p.maxParallelism < 0
}

// MaxParallelism returns the maximum number of concurrent tasks: 0 means tasks run inline, and a negative
// value means no limit.
func (p *Pool) MaxParallelism() int {
	return p.maxParallelism
}

// SetMaxParallelism sets the maximum number of concurrent tasks. See MaxParallelism.
func (p *Pool) SetMaxParallelism(maxParallelism int) {
	p.maxParallelism = maxParallelism
	p.slots = nil
	if maxParallelism > 0 {
		p.slots = make(chan struct{}, maxParallelism)
	}
}

// WaitToStart blocks until a worker is available and starts task in a new goroutine.
// If parallelism is disabled, it runs task inline and returns when it is finished.
func (p *Pool) WaitToStart(task func()) {
	switch {
	case p.maxParallelism < 0:
		go task()
	case p.maxParallelism == 0:
		task()
	default:
		slots := p.slots
		slots <- struct{}{}
		go func() {
			defer func() { <-slots }()
			task()
		}()
	}
}
