package extsort

import (
	"errors"
	"strconv"
	"sync"

	"github.com/tamirms/extsort/internal/syncutil"
)

// threadManager owns the worker goroutines for one run and the named
// coordination primitives they share: a registry of per-level barriers
// (workers on the same level rendezvous before any of them starts the next
// level) and a latch gating the one-time transition from the sort stage
// into merge scheduling. Barriers are registered lazily by name and kept
// here instead of as package state so each run owns an independent set.
type threadManager struct {
	mu       sync.Mutex
	registry *syncutil.Registry

	sortToMerge *syncutil.Latch

	errs   []error
	errsMu sync.Mutex
}

func newThreadManager() *threadManager {
	tm := &threadManager{sortToMerge: syncutil.NewLatch()}
	tm.registry = syncutil.NewRegistry()
	return tm
}

// LevelBarrier returns the barrier workers on the given task-tree level wait
// on before advancing, creating it on first use with n waiters.
func (tm *threadManager) LevelBarrier(level uint32, n int) *syncutil.Barrier {
	tm.mu.Lock()
	name := levelBarrierName(level)
	b := tm.registry.Barrier(name)
	if b == nil {
		b, _ = tm.registry.RegisterBarrier(name, n)
	}
	tm.mu.Unlock()
	return b
}

// SortToMerge returns the latch gating the sort-to-merge transition.
func (tm *threadManager) SortToMerge() *syncutil.Latch {
	return tm.sortToMerge
}

// spawnAndJoin runs n workers, each running fn(workerIndex), waits for all
// of them, and joins any errors into one, the same collect-after-join shape
// a parallel builder's worker goroutines would use around a sync.WaitGroup.
func (tm *threadManager) spawnAndJoin(n int, fn func(worker int) error) error {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(worker int) {
			defer wg.Done()
			if err := fn(worker); err != nil {
				tm.recordError(err)
			}
		}(i)
	}
	wg.Wait()
	return tm.joinedError()
}

func (tm *threadManager) recordError(err error) {
	tm.errsMu.Lock()
	tm.errs = append(tm.errs, err)
	tm.errsMu.Unlock()
}

func (tm *threadManager) joinedError() error {
	tm.errsMu.Lock()
	defer tm.errsMu.Unlock()
	if len(tm.errs) == 0 {
		return nil
	}
	return errors.Join(tm.errs...)
}

func levelBarrierName(level uint32) string {
	return "level-" + strconv.FormatUint(uint64(level), 10)
}
