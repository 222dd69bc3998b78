// Package parallel provides a worker-range helper for data-parallel loops.
// The pipeline's natural parallelism unit is a contiguous range of spatial
// grid points with no shared mutable state, which maps directly onto this
// helper.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits the index range [0, items) into contiguous chunks, one
// worker goroutine per CPU core, and calls fn(start, end) on each chunk. It returns once every
// worker has finished. fn must not touch state shared across ranges without
// its own synchronization.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so the last worker picks up the remainder.
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

// ParallelizeWithThreshold runs fn over the full range sequentially when
// items is at or below threshold, and parallelizes otherwise. Small grids
// (coarse FFT meshes, short energy axes) are not worth the goroutine
// overhead.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
