package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scierrors "github.com/YuminosukeSato/featbin/pkg/errors"
)

func TestParallelizeCoversAllItems(t *testing.T) {
	const items = 1037
	seen := make([]int32, items)
	var mu sync.Mutex
	workers := map[int]bool{}

	Parallelize(items, func(worker, start, end int) {
		mu.Lock()
		workers[worker] = true
		mu.Unlock()
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	})

	for i, c := range seen {
		require.Equal(t, int32(1), c, "item %d visited %d times", i, c)
	}
	for w := range workers {
		assert.GreaterOrEqual(t, w, 0)
		assert.Less(t, w, NumWorkers())
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(worker, start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWorkersCapsGoroutines(t *testing.T) {
	var mu sync.Mutex
	workers := map[int]bool{}
	total := 0

	ParallelizeWorkers(100, 1, func(worker, start, end int) {
		mu.Lock()
		defer mu.Unlock()
		workers[worker] = true
		total += end - start
	})

	assert.Equal(t, map[int]bool{0: true}, workers)
	assert.Equal(t, 100, total)
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int
	ParallelizeWithThreshold(10, 100, func(worker, start, end int) {
		calls++
		assert.Equal(t, 0, worker)
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

// TestRunAllRunsToCompletion checks that failures never cancel siblings
func TestRunAllRunsToCompletion(t *testing.T) {
	const n = 16
	var done int32
	errBoom := scierrors.New("boom")

	err := RunAll(n, func(i int) error {
		atomic.AddInt32(&done, 1)
		switch i {
		case 3:
			return errBoom
		case 7:
			panic("unit 7 exploded")
		}
		return nil
	}, nil)

	require.Error(t, err)
	assert.Equal(t, int32(n), atomic.LoadInt32(&done), "every unit must run")
	assert.True(t, scierrors.Is(err, errBoom))

	var panicErr *scierrors.PanicError
	assert.True(t, scierrors.As(err, &panicErr))
	assert.Contains(t, err.Error(), "unit 7 exploded")
}

func TestRunAllWrap(t *testing.T) {
	err := RunAll(4, func(i int) error {
		if i%2 == 1 {
			return scierrors.ErrDuplicateRow
		}
		return nil
	}, scierrors.NewFinalizeError)

	require.Error(t, err)
	var finErr *scierrors.FinalizeError
	require.True(t, scierrors.As(err, &finErr))
	assert.True(t, scierrors.Is(err, scierrors.ErrDuplicateRow))
	assert.Contains(t, err.Error(), "feature 1")
	assert.Contains(t, err.Error(), "feature 3")
}

func TestRunAllNoErrors(t *testing.T) {
	assert.NoError(t, RunAll(5, func(i int) error { return nil }, nil))
	assert.NoError(t, RunAll(0, nil, nil))
}
