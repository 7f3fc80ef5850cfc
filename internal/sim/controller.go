package sim

import (
	"time"

	"github.com/weihli/uquad/internal/statevec"
)

// PDController is a proportional-derivative (plus optional integral term
// gated by CTRL_INTEGRAL) controller producing 4 rotor speeds from the
// position/attitude error between x_hat and the setpoint. Grounded in
// propagate-then-correct shape on thesyncim/bwe's pkg/bwe/kalman.go
// (other_examples), adapted from a single-axis bandwidth estimator to a
// 4-rotor mixer: altitude error drives common-mode thrust, attitude error
// drives differential mixing across the four rotors in a simple "x"
// quadrotor layout.
type PDController struct {
	integralEnabled bool

	kpZ, kdZ, kiZ          float64
	kpAtt, kdAtt           float64
	hover                  float64
	integralZ              float64
	prevErrZ               float64
	prevPsi, prevPhi, prevTheta float64
	havePrev               bool
}

// NewPDController builds a controller; hoverSpeed seeds the common-mode
// thrust term so the mixer starts near equilibrium instead of at zero.
func NewPDController(hoverSpeed float64, integralEnabled bool) *PDController {
	return &PDController{
		integralEnabled: integralEnabled,
		kpZ:             40, kdZ: 12, kiZ: 2,
		kpAtt: 80, kdAtt: 20,
		hover: hoverSpeed,
	}
}

// Compute implements gateway.Controller.
func (c *PDController) Compute(xHat statevec.Vector, sp statevec.Setpoint, dt time.Duration) (statevec.RotorSpeeds, error) {
	dtSec := dt.Seconds()
	if dtSec <= 0 {
		dtSec = 1e-3
	}

	errZ := sp.X.Get(statevec.Z) - xHat.Get(statevec.Z)
	errPsi := sp.X.Get(statevec.PSI) - xHat.Get(statevec.PSI)
	errPhi := sp.X.Get(statevec.PHI) - xHat.Get(statevec.PHI)
	errTheta := sp.X.Get(statevec.THETA) - xHat.Get(statevec.THETA)

	var dErrZ, dPsi, dPhi, dTheta float64
	if c.havePrev {
		dErrZ = (errZ - c.prevErrZ) / dtSec
		dPsi = (errPsi - c.prevPsi) / dtSec
		dPhi = (errPhi - c.prevPhi) / dtSec
		dTheta = (errTheta - c.prevTheta) / dtSec
	}
	c.prevErrZ, c.prevPsi, c.prevPhi, c.prevTheta = errZ, errPsi, errPhi, errTheta
	c.havePrev = true

	if c.integralEnabled {
		c.integralZ += errZ * dtSec
	}

	thrust := c.hover + c.kpZ*errZ + c.kdZ*dErrZ + c.kiZ*c.integralZ
	mixYaw := c.kpAtt*errPsi + c.kdAtt*dPsi
	mixRoll := c.kpAtt*errPhi + c.kdAtt*dPhi
	mixPitch := c.kpAtt*errTheta + c.kdAtt*dTheta

	// "x" quadrotor mixer: rotors ordered front-right, back-right,
	// back-left, front-left; yaw alternates sign with rotor spin
	// direction.
	return statevec.RotorSpeeds{
		thrust + mixPitch - mixRoll - mixYaw,
		thrust - mixPitch - mixRoll + mixYaw,
		thrust - mixPitch + mixRoll - mixYaw,
		thrust + mixPitch + mixRoll + mixYaw,
	}, nil
}
