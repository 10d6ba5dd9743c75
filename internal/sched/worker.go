package sched

import (
	"math/rand"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/utkarsh5026/fanpool/internal/cpu"
)

// runWorker is the body every worker runs until shutdown. Each iteration
// checks, in priority order: own deque, then a steal attempt while the
// system counter is nonzero, then admission of one new request. Only the
// admission step brings new work into the system, so no worker starts a
// fresh request while any task is live anywhere.
func (s *Scheduler) runWorker(id int) error {
	if s.conf.PinWorkers {
		defer cpu.PinWorker(id)()
	}

	self := s.deques[id]
	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(id)<<32))
	misses := 0

	for {
		select {
		case <-s.quit:
			s.drain(id, self)
			return nil
		default:
		}

		if t, ok := self.pop(); ok {
			// Local pops are unconditional: the owner keeps draining
			// its deque at full speed no matter how stale the work is.
			s.execute(id, t, false)
			misses = 0
			continue
		}

		if s.sysTasks.Load() != 0 {
			// Nonzero means "worth trying", not "a steal will
			// succeed". A failed attempt is a no-op iteration.
			if s.trySteal(id, rng) {
				misses = 0
			} else {
				misses++
				s.conf.Idle.Pause(misses)
			}
			continue
		}

		if s.admit(self) {
			misses = 0
			continue
		}
		misses++
		s.conf.Idle.Pause(misses)
	}
}

// trySteal pops from one uniformly random peer deque. A stolen task runs
// only if its request is still inside the latency target; a late task is
// pushed back where it came from after its request's accounting has been
// written off.
func (s *Scheduler) trySteal(id int, rng *rand.Rand) bool {
	n := len(s.deques)
	if n <= 1 {
		return false
	}

	victim := rng.Intn(n - 1)
	if victim >= id {
		victim++
	}
	vq := s.deques[victim]

	t, ok := vq.pop()
	if !ok {
		// Counter was stale. Tolerated, not an error.
		return false
	}
	if !s.stealable(t) {
		vq.push(t)
		return false
	}
	s.execute(id, t, true)
	return true
}

// stealable applies the latency gate. Crossing the deadline triggers the
// one-shot write-off of the whole request; sibling checks afterwards see
// nothing left to subtract.
func (s *Scheduler) stealable(t *task) bool {
	now := time.Now()
	if !t.expired(now, s.conf.TargetLatency) {
		return true
	}
	if left := t.abandon(&s.sysTasks); left > 0 {
		s.ctr.abandonedTasks.Add(uint64(left))
		s.ctr.abandonedRequests.Add(1)
		s.m.inc(s.m.abandoned, left)
		s.log.Info("request abandoned",
			zap.Int64("outstanding", left),
			zap.Duration("age", now.Sub(t.arrival)))
	}
	return false
}

// admit pops one request off the global queue and fans it out onto this
// worker's own deque. Reached only when the caller's deque is empty and
// the system counter reads zero.
func (s *Scheduler) admit(self *localDeque) bool {
	if s.global.size() == 0 {
		return false
	}
	if lim := s.conf.Admission; lim != nil && !lim.Allow() {
		return false
	}
	ingest, ok := s.global.pop()
	if !ok {
		return false
	}
	ingest(self)
	return true
}

// execute runs the payload, then settles the counters. A task whose
// request was already written off still runs its payload exactly once,
// but touches no counter.
func (s *Scheduler) execute(id int, t *task, stolen bool) {
	s.invoke(t.run)
	s.ctr.perWorker[id].Add(1)

	if !t.finish(&s.sysTasks) {
		s.ctr.zombieRuns.Add(1)
		s.m.inc(s.m.zombie, 1)
		return
	}
	s.ctr.executed.Add(1)
	s.m.inc(s.m.executed, 1)
	if stolen {
		s.ctr.stolen.Add(1)
		s.m.inc(s.m.stolen, 1)
	}
}

// invoke runs one payload under the configured panic policy.
func (s *Scheduler) invoke(fn func()) {
	if !s.conf.CatchPanics {
		fn()
		return
	}
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			s.ctr.panics.Add(1)
			s.m.inc(s.m.panics, 1)
			s.log.Error("payload panicked",
				zap.Any("panic", r),
				zap.String("stack", string(buf[:n])))
		}
	}()
	fn()
}

// drain runs at shutdown: finish everything on the own deque, then help
// ingest and finish whatever is still waiting on the global queue.
func (s *Scheduler) drain(id int, self *localDeque) {
	for {
		if t, ok := self.pop(); ok {
			s.execute(id, t, false)
			continue
		}
		if ingest, ok := s.global.pop(); ok {
			ingest(self)
			continue
		}
		return
	}
}
