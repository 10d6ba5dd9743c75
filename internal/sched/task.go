package sched

import (
	"sync/atomic"
	"time"
)

// task is one schedulable repetition of a fan-out request.
//
// Every sibling task of the same request shares the arrival timestamp and
// the remaining counter. A task is owned by whichever deque slot holds it;
// popping it transfers ownership to the executing worker.
type task struct {
	// run is the request payload. It must be safe to call concurrently
	// from any worker.
	run func()

	// arrival is when the owning request entered the system, copied into
	// every sibling so the lateness check needs no extra indirection.
	arrival time.Time

	// remaining counts the sibling tasks still outstanding. It reaches
	// zero either through per-task completion or through a one-shot
	// abandonment of the whole request.
	remaining *atomic.Int64
}

// finish settles the bookkeeping after the payload has run. It decrements
// the shared remaining counter and the system counter by one, unless the
// request was already abandoned, in which case nothing is touched and
// finish reports false.
//
// The CAS loop tolerates a concurrent abandonment: if the counter is
// swapped to zero between the load and the CAS, the retry observes zero
// and backs out without decrementing.
func (t *task) finish(sys *atomic.Int64) bool {
	for {
		left := t.remaining.Load()
		if left == 0 {
			return false
		}
		if t.remaining.CompareAndSwap(left, left-1) {
			sys.Add(-1)
			return true
		}
	}
}

// expired reports whether the owning request has outlived the target
// latency. It has no side effects.
func (t *task) expired(now time.Time, target time.Duration) bool {
	return now.Sub(t.arrival) >= target
}

// abandon zeroes the shared remaining counter and removes the outstanding
// remainder from the system counter in one step. It returns the number of
// tasks whose accounting was written off, or zero if a sibling already
// performed the abandonment.
//
// The Swap makes the write-off one-shot: exactly one caller observes a
// nonzero remainder, every later caller gets zero and subtracts nothing.
func (t *task) abandon(sys *atomic.Int64) int64 {
	left := t.remaining.Swap(0)
	if left > 0 {
		sys.Add(-left)
	}
	return left
}
