package orchestrator

import "github.com/weihli/uquad/internal/statevec"

// rampCommand computes the P3 per-rotor command. runsKalman is the
// number of ramp Kalman updates completed before this one (0 on the
// first ramp iteration, startupKalman-1 on the last), per spec §4.1's
// tie-break formula:
//
//	max(w_min, controller_w - (STARTUP_KALMAN - runs_kalman)*(w_hover - w_min)/STARTUP_KALMAN)
//
// controllerW is the controller's desired speed for that rotor; the
// result still passes through the motor gateway's own [w_min, w_max]
// clamp downstream.
func rampCommand(controllerW, wMin, wHover float64, runsKalman, startupKalman int) float64 {
	remaining := float64(startupKalman - runsKalman)
	v := controllerW - remaining*(wHover-wMin)/float64(startupKalman)
	if v < wMin {
		return wMin
	}
	return v
}

// rampRotorSpeeds applies rampCommand independently to each of the four
// rotors.
func rampRotorSpeeds(controllerW statevec.RotorSpeeds, wMin, wHover float64, runsKalman, startupKalman int) statevec.RotorSpeeds {
	var out statevec.RotorSpeeds
	for i, w := range controllerW {
		out[i] = rampCommand(w, wMin, wHover, runsKalman, startupKalman)
	}
	return out
}
