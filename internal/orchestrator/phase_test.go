package orchestrator

import "testing"

func TestAdvanceToNeverRegresses(t *testing.T) {
	p, changed := advanceTo(PhaseRamp, PhaseIMUWarmup)
	if changed || p != PhaseRamp {
		t.Fatalf("phase must not regress: got %v changed=%v", p, changed)
	}
}

func TestAdvanceToMovesForward(t *testing.T) {
	p, changed := advanceTo(PhaseIMUWarmup, PhaseIMUCalibrating)
	if !changed || p != PhaseIMUCalibrating {
		t.Fatalf("expected forward transition, got %v changed=%v", p, changed)
	}
}

func TestAdvanceToSameStageIsNoChange(t *testing.T) {
	p, changed := advanceTo(PhaseRamp, PhaseRamp)
	if changed || p != PhaseRamp {
		t.Fatal("re-entering the same phase must not report a change")
	}
}
