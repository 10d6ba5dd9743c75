package pool

import (
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Option is a functional option for configuring the pool.
type Option func(*config)

type config struct {
	targetLatency time.Duration
	logger        *zap.Logger
	registry      metrics.Registry
	admission     *rate.Limiter
	pinWorkers    bool
	catchPanics   bool
	idleSleepMin  time.Duration
	idleSleepMax  time.Duration
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		catchPanics: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithTargetLatency sets the deadline, measured from request arrival,
// past which a request's tasks stop being eligible for stealing. It does
// not bound execution time. Defaults to DefaultTargetLatency.
func WithTargetLatency(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.targetLatency = d
		}
	}
}

// WithLogger sets a structured logger for cold-path events: pool start
// and stop, request ingestion, abandonment, recovered panics. The hot
// scheduling loop never logs. Defaults to no logging.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithMetricsRegistry publishes pool counters into the given go-metrics
// registry under the "fanpool." prefix.
func WithMetricsRegistry(r metrics.Registry) Option {
	return func(cfg *config) {
		cfg.registry = r
	}
}

// WithAdmissionLimit throttles how fast workers admit new requests from
// the global queue. requestsPerSecond and burst feed a token bucket that
// is consulted without blocking, so a drained bucket just delays
// admission to a later idle iteration. Submission via ForAll is never
// throttled. Defaults to unthrottled.
func WithAdmissionLimit(requestsPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if requestsPerSecond > 0 && burst > 0 {
			cfg.admission = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// WithPinnedWorkers pins each worker's OS thread to a CPU core on
// platforms that support it.
func WithPinnedWorkers() Option {
	return func(cfg *config) {
		cfg.pinWorkers = true
	}
}

// WithoutPanicRecovery disables the default payload panic recovery. A
// panicking payload then kills its worker goroutine, permanently
// shrinking the pool, so this is mainly useful in tests that want
// panics to surface.
func WithoutPanicRecovery() Option {
	return func(cfg *config) {
		cfg.catchPanics = false
	}
}

// WithIdleSleep sets the sleep range for the idle backoff ladder. A
// worker that repeatedly finds nothing to do first spins, then yields,
// then sleeps in doubling steps from min up to max.
func WithIdleSleep(min, max time.Duration) Option {
	return func(cfg *config) {
		if min > 0 && max >= min {
			cfg.idleSleepMin = min
			cfg.idleSleepMax = max
		}
	}
}
