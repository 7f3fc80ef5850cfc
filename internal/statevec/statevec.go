// Package statevec defines the data model shared by every gateway and the
// orchestrator: the state vector x_hat, the setpoint, rotor-speed vectors
// and the IMU/GPS sample shapes from spec §3. Grounded in shape on
// relabs-tech/inertial_computer's Vec3 (other_examples calibration files)
// and on the symbolic-slot layout spec §3 names explicitly.
package statevec

import "time"

// Slot names one entry of a Vector, matching spec §3's symbolic slots.
type Slot int

// The fixed slot layout. Bias slots are only meaningful when the Kalman
// gateway was configured with bias estimation enabled (KALMAN_BIAS).
const (
	X Slot = iota
	Y
	Z
	VQX
	VQY
	VQZ
	PSI
	PHI
	THETA
	BAX
	BAY
	BAZ
	numSlots
)

// NumSlots is the fixed length of every Vector in this package.
const NumSlots = int(numSlots)

// Vector is the fixed-length, symbolically-indexed state/setpoint vector
// from spec §3. The zero Vector is all zeros, a valid "origin" state.
type Vector [NumSlots]float64

// Get reads a slot.
func (v Vector) Get(s Slot) float64 { return v[s] }

// Set returns a copy of v with slot s replaced — Vector is a value type so
// callers never accidentally alias shared state (x_hat and sp are
// conceptually owned by different components per spec §3's ownership
// rules).
func (v Vector) Set(s Slot, val float64) Vector {
	v[s] = val
	return v
}

// Add adds slot s's value by delta and returns the result.
func (v Vector) Add(s Slot, delta float64) Vector {
	v[s] += delta
	return v
}

// Setpoint is the desired state the controller drives toward (spec §3).
type Setpoint struct {
	X Vector
}

// RotorSpeeds is the ordered 4-entry rotor angular velocity vector w
// (rad/s), spec §3.
type RotorSpeeds [4]float64

// Clamp returns a copy of w with every entry clamped to [min, max].
func (w RotorSpeeds) Clamp(min, max float64) RotorSpeeds {
	for i, v := range w {
		if v < min {
			w[i] = min
		} else if v > max {
			w[i] = max
		}
	}
	return w
}

// FixQuality is the GPS fix-quality indicator from spec §3.
type FixQuality int

// Fix qualities; only Fix3D makes a GPS datum admissible to the Kalman
// gateway per spec §4.5.
const (
	FixNone FixQuality = iota
	Fix2D
	Fix3D
)

// IMUAverage is the IMU gateway's averaged sample shape from spec §3.
// Interval is the elapsed time since the previous average, as supplied by
// the IMU gateway; the orchestrator uses it as given and does not measure
// it from its own clock.
type IMUAverage struct {
	Acc, Gyro, Magn [3]float64
	Interval        time.Duration
}

// GPSFix is the GPS datum from spec §3, position already zeroed to the
// local frame established at startup.
type GPSFix struct {
	Pos     [3]float64
	Quality FixQuality
}

// NullEstimate is the calibration null-estimate used to seed x_hat and sp
// in P2 (spec §4.1): Euler angles derived from the magnetometer, plus
// optional accelerometer biases.
type NullEstimate struct {
	Psi, Phi, Theta    float64
	HasAccelBias       bool
	BAX, BAY, BAZ      float64
}
