package orchestrator

import "testing"

// TestRampCommandWorkedExample mirrors spec §8 scenario 6 exactly:
// STARTUP_KALMAN=4, w_min=100, w_hover=300, controller desires 400
// throughout. Expected per-iteration commands: {200, 250, 300, 350}.
func TestRampCommandWorkedExample(t *testing.T) {
	const wMin, wHover, controllerW = 100.0, 300.0, 400.0
	const startupKalman = 4

	want := []float64{200, 250, 300, 350}
	for step, w := range want {
		got := rampCommand(controllerW, wMin, wHover, step, startupKalman)
		if got != w {
			t.Fatalf("step %d: got %v, want %v", step, got, w)
		}
	}
}

func TestRampCommandNeverBelowWMin(t *testing.T) {
	got := rampCommand(50, 100, 300, 0, 4)
	if got != 100 {
		t.Fatalf("expected floor at w_min=100, got %v", got)
	}
}

func TestRampRotorSpeedsAppliesPerRotor(t *testing.T) {
	controllerW := [4]float64{400, 380, 420, 400}
	out := rampRotorSpeeds(controllerW, 100, 300, 0, 4)
	want := [4]float64{200, 180, 220, 200}
	if out != want {
		t.Fatalf("got %v, want %v", out, want)
	}
}
