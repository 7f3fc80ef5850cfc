package orchestrator

import (
	"errors"
	"time"
)

// errNegativeDt is the fatal timing error of spec §4.2: the clock ran
// backward between two consumed IMU averages.
var errNegativeDt = errors.New("orchestrator: negative Δt between IMU averages")

// timingGate clamps a measured Δt to [min, max], tracking a suppression
// counter so an out-of-range run only logs once every errorWait
// violations, resetting as soon as an in-range Δt is seen (spec §4.2,
// §8's "one warning" boundary).
type timingGate struct {
	min, max time.Duration
	errorWait int

	suppressed int
}

func newTimingGate(min, max time.Duration, errorWait int) *timingGate {
	return &timingGate{min: min, max: max, errorWait: errorWait}
}

// gateResult carries the clamped Δt plus whether a warning should be
// emitted this call.
type gateResult struct {
	dt   time.Duration
	warn bool
}

// apply clamps dt and decides whether to warn. It returns errNegativeDt
// for dt < 0 without modifying the suppression counter (a fatal path
// skips the rest of the iteration entirely, per spec §4.2/§7).
func (g *timingGate) apply(dt time.Duration) (gateResult, error) {
	if dt < 0 {
		return gateResult{}, errNegativeDt
	}

	if dt >= g.min && dt <= g.max {
		g.suppressed = 0
		return gateResult{dt: dt, warn: false}, nil
	}

	clamped := g.min
	if dt > g.max {
		clamped = g.max
	}

	warn := g.suppressed == 0
	g.suppressed++
	if g.suppressed >= g.errorWait {
		g.suppressed = 0
	}
	return gateResult{dt: clamped, warn: warn}, nil
}
