package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_WaitToStart(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(2)
	assert.True(t, pool.IsEnabled())

	var running, maxRunning, count atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		pool.WaitToStart(func() {
			defer wg.Done()
			current := running.Add(1)
			for {
				seen := maxRunning.Load()
				if current <= seen || maxRunning.CompareAndSwap(seen, current) {
					break
				}
			}
			count.Add(1)
			running.Add(-1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(20), count.Load())
	assert.LessOrEqual(t, maxRunning.Load(), int32(2))

	// No parallelism: runs inline.
	pool.SetMaxParallelism(0)
	assert.False(t, pool.IsEnabled())
	count.Store(0)
	pool.WaitToStart(func() { count.Add(1) })
	assert.Equal(t, int32(1), count.Load())

	// Unlimited.
	pool.SetMaxParallelism(-1)
	assert.True(t, pool.IsUnlimited())
	wg.Add(1)
	pool.WaitToStart(func() { count.Add(1); wg.Done() })
	wg.Wait()
	assert.Equal(t, int32(2), count.Load())
}

func TestPool_SetMaxParallelismWhileRunning(t *testing.T) {
	pool := New()
	pool.SetMaxParallelism(1)
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	pool.WaitToStart(func() {
		defer wg.Done()
		<-release
	})

	// Task started with the previous limit must free its own slot.
	pool.SetMaxParallelism(0)
	close(release)
	wg.Wait()

	pool.SetMaxParallelism(1)
	for range 3 {
		wg.Add(1)
		pool.WaitToStart(func() { wg.Done() })
	}
	wg.Wait()
}
