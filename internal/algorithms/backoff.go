// Package algorithms holds small scheduling algorithms shared by the
// pool internals.
package algorithms

import (
	"runtime"
	"time"
)

const (
	defaultSpinLimit  = 20
	defaultYieldLimit = 30
	defaultMinSleep   = 50 * time.Microsecond
	defaultMaxSleep   = 5 * time.Millisecond

	maxSleepSteps = 63 // prevent overflow in the doubling below
)

// IdleBackoff paces a worker that keeps finding nothing to run. The miss
// count resets to zero whenever the worker gets work, so the ladder
// restarts at the spin phase on every busy period.
//
// Progression by consecutive misses:
//   - up to SpinLimit: return immediately and re-check (bursty arrivals
//     are picked up with no added latency)
//   - up to YieldLimit: yield the processor to other goroutines
//   - beyond: sleep, doubling from MinSleep up to MaxSleep
//
// An IdleBackoff value is stateless and safe to share across workers.
type IdleBackoff struct {
	SpinLimit  int
	YieldLimit int
	MinSleep   time.Duration
	MaxSleep   time.Duration
}

// FillDefaults replaces unset fields with the default ladder.
func (b *IdleBackoff) FillDefaults() {
	if b.SpinLimit <= 0 {
		b.SpinLimit = defaultSpinLimit
	}
	if b.YieldLimit <= b.SpinLimit {
		b.YieldLimit = b.SpinLimit + (defaultYieldLimit - defaultSpinLimit)
	}
	if b.MinSleep <= 0 {
		b.MinSleep = defaultMinSleep
	}
	if b.MaxSleep < b.MinSleep {
		b.MaxSleep = defaultMaxSleep
	}
	if b.MaxSleep < b.MinSleep {
		b.MaxSleep = b.MinSleep
	}
}

// Pause blocks (or not) according to the ladder position for the given
// consecutive miss count.
func (b IdleBackoff) Pause(misses int) {
	switch {
	case misses <= b.SpinLimit:
		return
	case misses <= b.YieldLimit:
		runtime.Gosched()
	default:
		time.Sleep(b.SleepFor(misses))
	}
}

// SleepFor returns the sleep duration for a miss count in the sleep
// phase: MinSleep doubled once per miss past YieldLimit, capped at
// MaxSleep. Counts at or below YieldLimit return zero.
func (b IdleBackoff) SleepFor(misses int) time.Duration {
	steps := misses - b.YieldLimit - 1
	if steps < 0 {
		return 0
	}
	if steps >= maxSleepSteps {
		return b.MaxSleep
	}

	d := b.MinSleep << uint(steps)
	if d > b.MaxSleep || d < 0 {
		return b.MaxSleep
	}
	return d
}
