package parallel

import (
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per worker, and runs fn on
// each range concurrently. workers <= 0 means runtime.NumCPU(). It returns after every
// range has been processed.
func Parallelize(items, workers int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially when items <= threshold or when only
// one worker is requested, and in parallel otherwise.
func ParallelizeWithThreshold(items, threshold, workers int, fn func(start, end int)) {
	if items <= threshold || workers == 1 {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, workers, fn)
}
