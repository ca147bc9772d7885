// Package parallel holds the data-parallel fan-out helpers used by ingestion
// and finalize.
package parallel

import (
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

// NumWorkers returns the number of goroutines a fan-out may use. Worker ids
// handed to callbacks are always in [0, NumWorkers()).
func NumWorkers() int {
	return runtime.GOMAXPROCS(0)
}

// Parallelize divides items into one contiguous range per worker and runs fn
// for each range concurrently. worker is a stable id in [0, NumWorkers()),
// suitable as a thread id for per-thread buffers.
func Parallelize(items int, fn func(worker, start, end int)) {
	ParallelizeWorkers(items, NumWorkers(), fn)
}

// ParallelizeWorkers is Parallelize with at most workers goroutines. workers
// is clamped to [1, NumWorkers()].
func ParallelizeWorkers(items, workers int, fn func(worker, start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := workers
	if numWorkers < 1 || numWorkers > NumWorkers() {
		numWorkers = NumWorkers()
	}
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
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
		go func(w, s, e int) {
			defer wg.Done()
			fn(w, s, e)
		}(i, start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold.
// Below the threshold fn runs once on worker 0.
func ParallelizeWithThreshold(items int, threshold int, fn func(worker, start, end int)) {
	if items <= threshold {
		fn(0, 0, items)
		return
	}
	Parallelize(items, fn)
}

// RunAll runs fn(i) for every i in [0, n) with at most NumWorkers() in flight.
// Every unit runs to completion: a failing or panicking unit never stops its
// siblings. Once all units have finished, every failure is returned joined,
// in unit order. wrap, when non-nil, decorates each unit's error.
func RunAll(n int, fn func(i int) error, wrap func(i int, err error) error) error {
	if n == 0 {
		return nil
	}
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(NumWorkers())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			err := scierrors.SafeExecute(fmt.Sprintf("unit %d", i), func() error {
				return fn(i)
			})
			if err != nil && wrap != nil {
				err = wrap(i, err)
			}
			errs[i] = err
			// never report to the group: a non-nil return would only keep the first error
			return nil
		})
	}
	_ = g.Wait()

	return scierrors.Join(errs...)
}
