package sched

import (
	"sync/atomic"

	"github.com/rcrowley/go-metrics"
)

// counters are the hot-path tallies the scheduler maintains with plain
// atomics. Reads are for cold-path observation only.
type counters struct {
	executed          atomic.Uint64 // payload runs that settled bookkeeping
	stolen            atomic.Uint64 // subset of executed that ran on a thief
	zombieRuns        atomic.Uint64 // payload runs after the request was written off
	abandonedTasks    atomic.Uint64
	abandonedRequests atomic.Uint64
	ingestedRequests  atomic.Uint64
	panics            atomic.Uint64
	perWorker         []atomic.Uint64 // payload runs per worker, bookkept or not
}

// Snapshot is a point-in-time copy of the scheduler tallies. Individual
// fields are read independently, so a snapshot taken while workers are
// busy is internally consistent only eventually.
type Snapshot struct {
	Executed          uint64
	Stolen            uint64
	ZombieRuns        uint64
	AbandonedTasks    uint64
	AbandonedRequests uint64
	IngestedRequests  uint64
	Panics            uint64
	Outstanding       int64
	PerWorker         []uint64
}

// meters mirrors the atomic tallies into an optional go-metrics registry
// so callers can plumb the pool into their existing metrics pipeline.
// A zero meters value (no registry) is a no-op on every path.
type meters struct {
	executed  metrics.Counter
	stolen    metrics.Counter
	zombie    metrics.Counter
	abandoned metrics.Counter
	ingested  metrics.Counter
	panics    metrics.Counter
}

func newMeters(r metrics.Registry) meters {
	if r == nil {
		return meters{}
	}
	return meters{
		executed:  metrics.GetOrRegisterCounter("fanpool.tasks.executed", r),
		stolen:    metrics.GetOrRegisterCounter("fanpool.tasks.stolen", r),
		zombie:    metrics.GetOrRegisterCounter("fanpool.tasks.zombie", r),
		abandoned: metrics.GetOrRegisterCounter("fanpool.tasks.abandoned", r),
		ingested:  metrics.GetOrRegisterCounter("fanpool.requests.ingested", r),
		panics:    metrics.GetOrRegisterCounter("fanpool.payload.panics", r),
	}
}

func (m meters) inc(c metrics.Counter, n int64) {
	if c != nil {
		c.Inc(n)
	}
}

// Stats returns a snapshot of the scheduler tallies.
func (s *Scheduler) Stats() Snapshot {
	per := make([]uint64, len(s.ctr.perWorker))
	for i := range s.ctr.perWorker {
		per[i] = s.ctr.perWorker[i].Load()
	}
	return Snapshot{
		Executed:          s.ctr.executed.Load(),
		Stolen:            s.ctr.stolen.Load(),
		ZombieRuns:        s.ctr.zombieRuns.Load(),
		AbandonedTasks:    s.ctr.abandonedTasks.Load(),
		AbandonedRequests: s.ctr.abandonedRequests.Load(),
		IngestedRequests:  s.ctr.ingestedRequests.Load(),
		Panics:            s.ctr.panics.Load(),
		Outstanding:       s.sysTasks.Load(),
		PerWorker:         per,
	}
}
