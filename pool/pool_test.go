package pool

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rcrowley/go-metrics"
	"go.uber.org/zap"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func newTestPool(t *testing.T, workers int, opts ...Option) *Pool {
	t.Helper()
	p, err := New(workers, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(5 * time.Second) })
	return p
}

func TestNew_RejectsInvalidWorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{"zero", 0},
		{"negative", -1},
		{"very negative", -1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.workers); err == nil {
				t.Errorf("New(%d) succeeded, want error", tt.workers)
			}
		})
	}
}

func TestNew_StartsWorkers(t *testing.T) {
	p := newTestPool(t, 3)
	if got := p.Workers(); got != 3 {
		t.Errorf("Workers() = %d, want 3", got)
	}
	if got := len(p.Stats().PerWorker); got != 3 {
		t.Errorf("per-worker stats length = %d, want 3", got)
	}
}

func TestForAll_Completeness(t *testing.T) {
	tests := []struct {
		name        string
		repetitions int
	}{
		{"zero", 0},
		{"one", 1},
		{"ten", 10},
		{"many", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPool(t, 4)

			var runs atomic.Int64
			if err := p.ForAll(tt.repetitions, func() { runs.Add(1) }); err != nil {
				t.Fatalf("ForAll: %v", err)
			}

			want := int64(tt.repetitions)
			waitFor(t, 5*time.Second, func() bool { return runs.Load() == want }, "payload runs")
			waitFor(t, time.Second, func() bool { return p.Stats().Outstanding == 0 }, "counter drain")

			if got := runs.Load(); got != want {
				t.Errorf("payload ran %d times, want %d", got, want)
			}
			if got := p.Stats().Executed; got != uint64(tt.repetitions) {
				t.Errorf("executed = %d, want %d", got, tt.repetitions)
			}
		})
	}
}

func TestForAll_Validation(t *testing.T) {
	p := newTestPool(t, 2)

	if err := p.ForAll(1, nil); !errors.Is(err, ErrNilPayload) {
		t.Errorf("nil payload: got %v, want ErrNilPayload", err)
	}
	if err := p.ForAll(-5, func() {}); !errors.Is(err, ErrNegativeRepetitions) {
		t.Errorf("negative repetitions: got %v, want ErrNegativeRepetitions", err)
	}
}

func TestForAll_ConcurrentSubmitters(t *testing.T) {
	p := newTestPool(t, 4)

	var runs atomic.Int64
	for i := 0; i < 10; i++ {
		go func() {
			_ = p.ForAll(20, func() { runs.Add(1) })
		}()
	}

	waitFor(t, 10*time.Second, func() bool { return runs.Load() == 200 }, "all requests")
	if got := p.Stats().IngestedRequests; got != 10 {
		t.Errorf("ingested requests = %d, want 10", got)
	}
}

func TestShutdown_Lifecycle(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var runs atomic.Int64
	if err := p.ForAll(8, func() { runs.Add(1) }); err != nil {
		t.Fatalf("ForAll: %v", err)
	}

	if err := p.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if got := runs.Load(); got != 8 {
		t.Errorf("runs after drain = %d, want 8", got)
	}

	if err := p.Shutdown(time.Second); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("second Shutdown: got %v, want ErrPoolClosed", err)
	}
	if err := p.ForAll(1, func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("ForAll after Shutdown: got %v, want ErrPoolClosed", err)
	}
}

func TestPanicRecoveryByDefault(t *testing.T) {
	p := newTestPool(t, 2, WithLogger(zap.NewNop()))

	if err := p.ForAll(5, func() { panic("boom") }); err != nil {
		t.Fatalf("ForAll: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return p.Stats().Executed == 5 }, "tasks to settle")
	if got := p.Stats().Panics; got != 5 {
		t.Errorf("panics = %d, want 5", got)
	}
}

func TestMetricsRegistry(t *testing.T) {
	reg := metrics.NewRegistry()
	p := newTestPool(t, 4, WithMetricsRegistry(reg))

	var runs atomic.Int64
	if err := p.ForAll(40, func() { runs.Add(1) }); err != nil {
		t.Fatalf("ForAll: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return runs.Load() == 40 }, "payload runs")
	waitFor(t, time.Second, func() bool {
		c, ok := reg.Get("fanpool.tasks.executed").(metrics.Counter)
		return ok && c.Count() == 40
	}, "executed counter")

	if c, ok := reg.Get("fanpool.requests.ingested").(metrics.Counter); !ok || c.Count() != 1 {
		t.Error("ingested counter not published")
	}
}

func TestWorkIsDistributed(t *testing.T) {
	p := newTestPool(t, 4)

	var runs atomic.Int64
	if err := p.ForAll(16, func() {
		runs.Add(1)
		time.Sleep(20 * time.Millisecond)
	}); err != nil {
		t.Fatalf("ForAll: %v", err)
	}
	waitFor(t, 5*time.Second, func() bool { return runs.Load() == 16 }, "payload runs")

	busy := 0
	for _, n := range p.Stats().PerWorker {
		if n > 0 {
			busy++
		}
	}
	if busy < 2 {
		t.Errorf("only %d workers ran tasks, want the load spread by stealing", busy)
	}
}
