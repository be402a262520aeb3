// Package syncutil provides the named, reusable coordination primitives the
// pipeline needs beyond what sync.WaitGroup offers: a reusable thread-count
// barrier, a single-admission latch, and a registry that hands out barriers
// by name so they can be created on first use instead of pre-wired statics.
package syncutil

import "sync"

// Barrier is a reusable thread-count barrier. n goroutines call Wait; the
// last arrival releases all of them. Unlike sync.WaitGroup, the barrier can
// be waited on again after every waiter has been released (Reset), which is
// what a multi-round pipeline needs from a single named instance.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	initial int
}

// NewBarrier creates a barrier that releases once n goroutines call Wait.
func NewBarrier(n int) *Barrier {
	b := &Barrier{n: n, initial: n}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until n goroutines (across all callers since the last Reset)
// have called Wait. The final caller does not block.
func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.n--
	if b.n < 0 {
		panic("syncutil: barrier waited on more times than its count")
	}
	if b.n == 0 {
		b.cond.Broadcast()
		return
	}
	for b.n != 0 {
		b.cond.Wait()
	}
}

// Reset restores the barrier to its initial count, or to n if given.
func (b *Barrier) Reset(n ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(n) > 0 {
		b.initial = n[0]
	}
	b.n = b.initial
}
