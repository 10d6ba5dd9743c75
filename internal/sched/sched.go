// Package sched implements a latency-aware work-stealing scheduler for
// fan-out requests.
//
// A request is one payload repeated N independent times. Each worker owns
// a mutex-guarded deque; a global FIFO holds requests that no worker has
// ingested yet. Workers drain their own deque first, steal from random
// peers while any task exists anywhere, and only admit a new request when
// the whole system is drained. Stealing is gated on the owning request's
// age: once a request misses the target latency, thieves write off its
// remaining accounting in one shot and leave the leftover tasks to the
// worker that ingested them.
package sched

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/fanpool/internal/algorithms"
)

// DefaultTargetLatency is the deadline, measured from request arrival,
// past which a request's tasks stop being eligible for stealing.
const DefaultTargetLatency = 4 * time.Second

var (
	// ErrClosed is returned by calls made after Shutdown.
	ErrClosed = errors.New("scheduler closed")

	// ErrShutdownTimeout is returned when workers do not drain and exit
	// within the Shutdown deadline.
	ErrShutdownTimeout = errors.New("scheduler shutdown timed out")

	// ErrNilPayload is returned by ForAll for a nil payload.
	ErrNilPayload = errors.New("nil payload")

	// ErrNegativeRepetitions is returned by ForAll for a negative count.
	ErrNegativeRepetitions = errors.New("negative repetition count")
)

// Config carries everything a Scheduler needs at construction time.
// The zero value of every field except Workers is usable.
type Config struct {
	// Workers is the fixed worker count. Must be at least 1.
	Workers int

	// TargetLatency gates steal eligibility. It never bounds execution
	// time and never preempts a running payload. Zero selects
	// DefaultTargetLatency.
	TargetLatency time.Duration

	// Logger receives cold-path events. Nil means no logging.
	Logger *zap.Logger

	// Registry, when set, publishes scheduler counters as go-metrics.
	Registry metrics.Registry

	// Admission, when set, throttles how fast workers admit new requests
	// from the global queue. Consulted without blocking.
	Admission *rate.Limiter

	// PinWorkers pins each worker's OS thread to a CPU core.
	PinWorkers bool

	// CatchPanics makes workers recover payload panics instead of
	// letting them kill the worker goroutine.
	CatchPanics bool

	// Idle paces workers that repeatedly find nothing to do. The zero
	// value selects the default spin, yield, sleep ladder.
	Idle algorithms.IdleBackoff
}

// Scheduler owns the deque roster, the global queue, and the system task
// counter, and runs one goroutine per worker until Shutdown.
type Scheduler struct {
	conf   Config
	log    *zap.Logger
	deques []*localDeque
	global *globalQueue

	// sysTasks approximates the number of live, not written-off tasks
	// across all deques. It is a steal signal, not a source of truth:
	// readers must tolerate staleness in both directions.
	sysTasks atomic.Int64

	ctr counters
	m   meters

	closed atomic.Bool
	quit   chan struct{}
	done   chan struct{}
}

// New builds the full deque roster, then starts all workers. Every worker
// can address every peer's deque by index from its first iteration.
func New(conf Config) (*Scheduler, error) {
	if conf.Workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", conf.Workers)
	}
	if conf.TargetLatency <= 0 {
		conf.TargetLatency = DefaultTargetLatency
	}
	if conf.Logger == nil {
		conf.Logger = zap.NewNop()
	}
	conf.Idle.FillDefaults()

	s := &Scheduler{
		conf:   conf,
		log:    conf.Logger,
		deques: make([]*localDeque, conf.Workers),
		global: &globalQueue{},
		m:      newMeters(conf.Registry),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for i := range s.deques {
		s.deques[i] = &localDeque{}
	}
	s.ctr.perWorker = make([]atomic.Uint64, conf.Workers)

	var g errgroup.Group
	for i := range conf.Workers {
		g.Go(func() error {
			return s.runWorker(i)
		})
	}
	go func() {
		_ = g.Wait()
		close(s.done)
	}()

	s.log.Info("scheduler started",
		zap.Int("workers", conf.Workers),
		zap.Duration("target_latency", conf.TargetLatency))
	return s, nil
}

// ForAll enqueues one fan-out request: payload repeated n times. It
// returns as soon as the request is on the global queue; it never waits
// for ingestion or completion and hands back no completion handle.
//
// The payload runs concurrently on arbitrary workers, so it must be safe
// for concurrent use. n must be non-negative; n == 0 is a no-op.
func (s *Scheduler) ForAll(n int, payload func()) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if payload == nil {
		return ErrNilPayload
	}
	if n < 0 {
		return ErrNegativeRepetitions
	}
	if n == 0 {
		return nil
	}

	arrival := time.Now()
	remaining := new(atomic.Int64)
	remaining.Store(int64(n))

	s.global.push(func(self *localDeque) {
		for range n {
			self.push(&task{run: payload, arrival: arrival, remaining: remaining})
		}
		s.sysTasks.Add(int64(n))
		s.ctr.ingestedRequests.Add(1)
		s.m.inc(s.m.ingested, 1)
		s.log.Debug("request ingested",
			zap.Int("repetitions", n),
			zap.Duration("queued_for", time.Since(arrival)))
	})
	return nil
}

// Closed reports whether Shutdown has been called.
func (s *Scheduler) Closed() bool {
	return s.closed.Load()
}

// Workers returns the fixed worker count.
func (s *Scheduler) Workers() int {
	return len(s.deques)
}

// Backlog returns the number of requests not yet ingested.
func (s *Scheduler) Backlog() int {
	return s.global.size()
}

// Shutdown stops the workers. Each worker finishes its current payload,
// drains its own deque, and helps ingest and drain whatever is left on
// the global queue, so every accepted request still runs. A timeout of
// zero waits forever.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(s.quit)

	if timeout <= 0 {
		<-s.done
		s.log.Info("scheduler stopped")
		return nil
	}
	select {
	case <-s.done:
		s.log.Info("scheduler stopped")
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}
