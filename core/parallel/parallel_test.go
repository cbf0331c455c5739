package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelize_CoversEveryItemOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 7, 64} {
		items := 50
		hits := make([]int32, items)

		Parallelize(items, workers, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		for i, h := range hits {
			assert.Equalf(t, int32(1), h, "workers=%d item=%d", workers, i)
		}
	}
}

func TestParallelize_NoItems(t *testing.T) {
	called := false
	Parallelize(0, 4, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(10, 100, 4, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, int32(1), calls)

	calls = 0
	ParallelizeWithThreshold(1000, 10, 1, func(start, end int) {
		atomic.AddInt32(&calls, 1)
	})
	assert.Equal(t, int32(1), calls)
}
