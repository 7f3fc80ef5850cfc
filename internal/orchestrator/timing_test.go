package orchestrator

import (
	"testing"
	"time"
)

func TestTimingGateInRange(t *testing.T) {
	g := newTimingGate(8*time.Millisecond, 15*time.Millisecond, 50)
	res, err := g.apply(10 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.warn {
		t.Fatal("in-range Δt should not warn")
	}
	if res.dt != 10*time.Millisecond {
		t.Fatalf("expected verbatim Δt, got %v", res.dt)
	}
}

func TestTimingGateClampsAndWarnsOnce(t *testing.T) {
	g := newTimingGate(8*time.Millisecond, 15*time.Millisecond, 50)

	res, err := g.apply(30 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.dt != 15*time.Millisecond {
		t.Fatalf("expected clamp to TS_MAX, got %v", res.dt)
	}
	if !res.warn {
		t.Fatal("first out-of-range Δt must warn")
	}

	// A second out-of-range Δt immediately after, within TS_ERROR_WAIT,
	// must clamp but stay silent (spec §8 boundary).
	res2, err := g.apply(30 * time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res2.warn {
		t.Fatal("second consecutive out-of-range Δt within TS_ERROR_WAIT must not warn")
	}
}

func TestTimingGateResetsSuppressionOnInRange(t *testing.T) {
	g := newTimingGate(8*time.Millisecond, 15*time.Millisecond, 50)

	if _, err := g.apply(30 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if _, err := g.apply(10 * time.Millisecond); err != nil { // in-range resets
		t.Fatal(err)
	}
	res, err := g.apply(30 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if !res.warn {
		t.Fatal("out-of-range Δt after an in-range run must warn immediately")
	}
}

func TestTimingGateNegativeDtIsFatal(t *testing.T) {
	g := newTimingGate(8*time.Millisecond, 15*time.Millisecond, 50)
	_, err := g.apply(-1 * time.Millisecond)
	if err != errNegativeDt {
		t.Fatalf("expected errNegativeDt, got %v", err)
	}
}
