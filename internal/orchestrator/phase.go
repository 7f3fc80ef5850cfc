package orchestrator

// Phase is a startup stage of the control loop. Stages only advance
// forward — spec §4.1's staged startup is sticky and never regresses once
// reached, even if a later condition that would otherwise re-qualify an
// earlier stage recurs (e.g. a timing glitch during P3 does not drop the
// loop back to P2).
type Phase int

const (
	// PhaseIMUWarmup (P0) discards IMU samples until the driver reports a
	// stable read rate.
	PhaseIMUWarmup Phase = iota
	// PhaseIMUCalibrating (P1) runs the IMU's bias/orientation calibration
	// routine to completion.
	PhaseIMUCalibrating
	// PhaseKalmanSeeding (P2) seeds the filter from the calibration result
	// and, in GPS-zero mode, the zero origin. GPS fixes are only queued
	// once seeding has run, so seeding does not use a read fix.
	PhaseKalmanSeeding
	// PhaseRamp (P3) ramps rotor speed from w_min toward the controller's
	// output over STARTUP_KALMAN Kalman updates.
	PhaseRamp
	// PhaseFreeControl (P4) hands rotor speed entirely to the controller.
	PhaseFreeControl
)

func (p Phase) String() string {
	switch p {
	case PhaseIMUWarmup:
		return "imu-warmup"
	case PhaseIMUCalibrating:
		return "imu-calibrating"
	case PhaseKalmanSeeding:
		return "kalman-seeding"
	case PhaseRamp:
		return "ramp"
	case PhaseFreeControl:
		return "free-control"
	default:
		return "unknown"
	}
}

// advanceTo moves the phase forward to next, refusing any regression. It
// reports whether the phase actually changed.
func advanceTo(current, next Phase) (Phase, bool) {
	if next <= current {
		return current, false
	}
	return next, true
}
