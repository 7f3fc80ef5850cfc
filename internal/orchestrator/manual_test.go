package orchestrator

import (
	"testing"

	"github.com/weihli/uquad/internal/sim"
	"github.com/weihli/uquad/internal/statevec"
)

func TestManualModeTogglesAndGatesOtherKeys(t *testing.T) {
	m := newManualInput(0.02, 0.05, 0.05, 1.0)
	planner := sim.NewHoverPlanner(false)
	motor := sim.NewSerialMotor(discard{}, 0, 1000, 1.0, 4.0)

	ev := m.handle(keyZInc, planner, motor)
	if !ev.invalid {
		t.Fatal("manual keys must be ignored while manual mode is off")
	}

	ev = m.handle(keyManualMode, planner, motor)
	if !ev.toggledOn {
		t.Fatal("expected manual mode to toggle on")
	}

	ev = m.handle(keyZInc, planner, motor)
	if ev.invalid {
		t.Fatal("Z key should be accepted once manual mode is on")
	}
}

// TestManualZClimbRoundTrip mirrors spec §8's round-trip property: k
// MANUAL_Z_INC then k MANUAL_Z_DEC leaves the setpoint unchanged, and
// spec §8 scenario 4 (5 increments moves Z by 5*MANUAL_Z_STEP).
func TestManualZClimbRoundTrip(t *testing.T) {
	m := newManualInput(0.02, 0.05, 0.05, 1.0)
	planner := sim.NewHoverPlanner(false)
	motor := sim.NewSerialMotor(discard{}, 0, 1000, 1.0, 4.0)

	m.handle(keyManualMode, planner, motor)

	for i := 0; i < 5; i++ {
		m.handle(keyZInc, planner, motor)
	}
	sp := planner.Setpoint()
	gotUp := sp.X.Get(statevec.Z)
	wantUp := 5 * 0.05
	if gotUp != wantUp {
		t.Fatalf("after 5 MANUAL_Z_INC: got Z=%v, want %v", gotUp, wantUp)
	}

	for i := 0; i < 5; i++ {
		m.handle(keyZDec, planner, motor)
	}
	sp = planner.Setpoint()
	if got := sp.X.Get(statevec.Z); got != 0 {
		t.Fatalf("after round trip, Z should return to 0, got %v", got)
	}
}

func TestManualWeightResetAndAdjust(t *testing.T) {
	m := newManualInput(0.02, 0.05, 0.05, 1.5)
	planner := sim.NewHoverPlanner(false)
	motor := sim.NewSerialMotor(discard{}, 0, 1000, 1.0, 4.0)
	m.handle(keyManualMode, planner, motor)

	m.handle(keyWeightReset, planner, motor)
	if got := motor.Weight() / gAccel; got != 1.5 {
		t.Fatalf("WEIGHT_RESET should restore MASA_DEFAULT=1.5, got mass=%v", got)
	}

	before := motor.WHover()
	m.handle(keyWeightInc, planner, motor)
	after := motor.WHover()
	if after <= before {
		t.Fatalf("increasing mass should raise w_hover: before=%v after=%v", before, after)
	}
}

func TestManualQuitRequestsShutdown(t *testing.T) {
	m := newManualInput(0.02, 0.05, 0.05, 1.0)
	planner := sim.NewHoverPlanner(false)
	motor := sim.NewSerialMotor(discard{}, 0, 1000, 1.0, 4.0)

	ev := m.handle(keyQuit, planner, motor)
	if !ev.quit {
		t.Fatal("QUIT key must report quit=true regardless of manual-mode state")
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
