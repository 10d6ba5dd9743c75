package pool

import (
	"fmt"
	"time"

	"github.com/utkarsh5026/fanpool/internal/algorithms"
	"github.com/utkarsh5026/fanpool/internal/sched"
)

// DefaultTargetLatency is the steal-eligibility deadline used when no
// WithTargetLatency option is given.
const DefaultTargetLatency = sched.DefaultTargetLatency

// Sentinel errors returned by Pool methods.
var (
	ErrPoolClosed          = sched.ErrClosed
	ErrShutdownTimeout     = sched.ErrShutdownTimeout
	ErrNilPayload          = sched.ErrNilPayload
	ErrNegativeRepetitions = sched.ErrNegativeRepetitions
)

// Pool is a fixed-size threadpool processing fan-out requests with a
// latency-aware work-stealing scheduler. All methods are safe for
// concurrent use.
type Pool struct {
	s *sched.Scheduler
}

// Stats is a point-in-time copy of the pool counters. See Pool.Stats.
type Stats struct {
	// Executed counts payload runs that completed with bookkeeping,
	// local and stolen alike. Stolen is the subset that ran on a worker
	// other than the one that ingested the request.
	Executed uint64
	Stolen   uint64

	// ZombieRuns counts payloads that still ran after their request was
	// written off for lateness. AbandonedTasks is the total accounting
	// written off; AbandonedRequests the number of write-offs.
	ZombieRuns        uint64
	AbandonedTasks    uint64
	AbandonedRequests uint64

	IngestedRequests uint64
	Panics           uint64

	// Outstanding is the system task counter. It is eventually, not
	// linearizably, consistent with the deque contents.
	Outstanding int64

	// PerWorker counts every payload run per worker index.
	PerWorker []uint64
}

// New constructs a pool with a fixed number of workers and starts them
// immediately. It returns an error for a worker count below 1.
func New(workers int, opts ...Option) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("fanpool: worker count must be at least 1, got %d", workers)
	}
	cfg := newConfig(opts...)

	s, err := sched.New(sched.Config{
		Workers:       workers,
		TargetLatency: cfg.targetLatency,
		Logger:        cfg.logger,
		Registry:      cfg.registry,
		Admission:     cfg.admission,
		PinWorkers:    cfg.pinWorkers,
		CatchPanics:   cfg.catchPanics,
		Idle: algorithms.IdleBackoff{
			MinSleep: cfg.idleSleepMin,
			MaxSleep: cfg.idleSleepMax,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fanpool: %w", err)
	}
	return &Pool{s: s}, nil
}

// ForAll submits one fan-out request: payload repeated repetitions
// times. It returns as soon as the request is queued for ingestion and
// provides no handle to await or cancel the work.
//
// The payload runs concurrently on arbitrary workers and must be safe
// for concurrent use. Requests are ingested in submission order, but
// execution order across requests is not guaranteed once stealing is
// active, and repetitions of one request run in no particular order.
func (p *Pool) ForAll(repetitions int, payload func()) error {
	return p.s.ForAll(repetitions, payload)
}

// Workers returns the fixed worker count.
func (p *Pool) Workers() int {
	return p.s.Workers()
}

// Backlog returns the number of submitted requests not yet ingested.
func (p *Pool) Backlog() int {
	return p.s.Backlog()
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	snap := p.s.Stats()
	return Stats{
		Executed:          snap.Executed,
		Stolen:            snap.Stolen,
		ZombieRuns:        snap.ZombieRuns,
		AbandonedTasks:    snap.AbandonedTasks,
		AbandonedRequests: snap.AbandonedRequests,
		IngestedRequests:  snap.IngestedRequests,
		Panics:            snap.Panics,
		Outstanding:       snap.Outstanding,
		PerWorker:         snap.PerWorker,
	}
}

// Shutdown stops the workers after they drain their deques and whatever
// is still waiting on the global queue, so every accepted request runs.
// A timeout of zero waits forever; a second call returns ErrPoolClosed.
func (p *Pool) Shutdown(timeout time.Duration) error {
	return p.s.Shutdown(timeout)
}
