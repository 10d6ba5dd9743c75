// Package pool provides a fixed-size threadpool for fan-out requests,
// scheduled by a latency-aware work-stealing scheduler.
//
// A request is one payload repeated N independent times. The pool tries
// to maximize the number of requests that finish end to end within a
// target latency, measured from request arrival, even when requests
// arrive concurrently and some are too large to ever make the deadline.
//
// # Basic Usage
//
//	p, err := pool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Shutdown(0)
//
//	p.ForAll(8, func() {
//	    renderTile()
//	})
//
// ForAll is fire and forget: it returns as soon as the request is queued
// and hands back no completion handle. The payload must be safe to call
// concurrently from any worker.
//
// # Scheduling
//
// Each worker owns a deque. A worker that ingests a request fans all N
// repetitions onto its own deque; from then on any worker may execute
// them. Workers drain their own deque first in LIFO order, steal from a
// random peer while any task exists anywhere, and admit a new request
// only once the whole system is drained. This steal-first admission
// keeps concurrent requests from interleaving their fan-outs.
//
// # Target Latency
//
// Stealing is gated on request age. Once a request has been in the
// system longer than the target latency it has already missed its
// deadline, so thieves stop diverting effort to it: the first thief to
// notice writes off the request's remaining accounting in one step, and
// the leftover tasks run only on the worker that ingested them. Those
// leftover payloads still run exactly once each; only their bookkeeping
// is gone. The target gates stealability, never execution time, and a
// running payload is never preempted.
//
//	p, err := pool.New(4, pool.WithTargetLatency(2*time.Second))
//
// # Observability
//
// The pool counts executed, stolen, zombie, and abandoned tasks, and can
// publish them to a go-metrics registry:
//
//	reg := metrics.NewRegistry()
//	p, err := pool.New(4,
//	    pool.WithLogger(logger),
//	    pool.WithMetricsRegistry(reg),
//	)
//	fmt.Println(p.Stats().Stolen)
package pool
