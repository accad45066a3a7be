package xsync

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicWaitGroup(t *testing.T) {
	wg := NewDynamicWaitGroup()
	var count atomic.Int32
	var spawn func(depth int)
	spawn = func(depth int) {
		defer wg.Done()
		count.Add(1)
		if depth == 0 {
			return
		}
		// Children are added while the parent is still counted.
		wg.Add(2)
		go spawn(depth - 1)
		go spawn(depth - 1)
	}
	wg.Add(1)
	go spawn(3)
	wg.Wait()
	assert.Equal(t, int32(15), count.Load())

	require.Panics(t, func() { wg.Done() })
}
