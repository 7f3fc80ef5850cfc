// Package gateway defines the narrow contracts the orchestrator consumes
// from its six collaborators (C2–C6 in spec §2). Numerics, transport
// framing and device-specific calibration are explicitly out of scope
// (spec §1); these interfaces are all the orchestrator is allowed to know.
package gateway

import (
	"time"

	"github.com/weihli/uquad/internal/statevec"
)

// Readable is satisfied by any sensor gateway that can be waited on by the
// I/O multiplexer (C1).
type Readable interface {
	// Fd returns the underlying file descriptor to register with the I/O
	// multiplexer, or -1 if this gateway has no real descriptor (e.g. a
	// replay/fake gateway driven purely by the synthetic clock).
	Fd() int
}

// IMU is the narrow contract spec §2/C2 describes: read-one, has-unread,
// get-average, plus the calibration handshake P1 needs.
type IMU interface {
	Readable

	// ReadOne consumes exactly one raw sample, non-blocking/short-bounded
	// per spec §5. It returns a non-nil error if no sample could be read.
	ReadOne() error

	// HasUnread reports whether at least one raw sample is buffered but not
	// yet folded into the running average.
	HasUnread() bool

	// GetAverage returns the current averaged sample and resets the
	// average, or ok == false if no new average is available this
	// iteration.
	GetAverage() (avg statevec.IMUAverage, ok bool)

	// BeginCalibration starts the gateway's calibration routine (P1). It
	// must not block; calibration progress is polled via
	// CalibrationDone.
	BeginCalibration() error

	// CalibrationDone reports whether calibration has finished.
	CalibrationDone() bool

	// CalibrationResult returns the null-estimate used to seed x_hat/sp in
	// P2. Only valid once CalibrationDone() is true.
	CalibrationResult() statevec.NullEstimate
}

// GPS is the narrow contract spec §2/C2 describes for the GPS gateway.
type GPS interface {
	Readable

	// ReadOne consumes exactly one GPS datum, non-blocking/short-bounded.
	ReadOne() error

	// HasUnread reports whether a parsed-but-unconsumed fix is available.
	HasUnread() bool

	// Fix3D reports whether the most recently read datum carries a 3D fix.
	Fix3D() bool

	// GetFix returns the most recently read datum.
	GetFix() statevec.GPSFix

	// SetZero establishes the local zero origin from the current position.
	SetZero()
}

// Motor is the narrow contract spec §2/C3 describes.
type Motor interface {
	// Idle commands all rotors to their minimum speed (used by the
	// two-phase quit).
	Idle() error

	// Set commands w, after the gateway clamps every entry to
	// [WMin(), w_max].
	Set(w statevec.RotorSpeeds) error

	// Deinit releases the underlying transport. Fatal if it fails (spec
	// §1 non-goals: "no recovery from motor-driver failure").
	Deinit() error

	WCurr() statevec.RotorSpeeds
	WMin() float64
	WHover() float64
	Weight() float64

	// SetMass re-derives WHover() from a new vehicle mass (manual weight
	// adjustment, spec §4.7).
	SetMass(mass float64)
}

// Kalman is the narrow contract spec §2/C4 describes.
type Kalman interface {
	// Seed initializes x_hat from the calibration null-estimate and an
	// optional GPS fix (P2, spec §4.1).
	Seed(estimate statevec.NullEstimate, gps *statevec.GPSFix) error

	// Update folds one IMU average (with the already-clamped dt) and an
	// optional GPS fix into x_hat.
	Update(w statevec.RotorSpeeds, avg statevec.IMUAverage, dt time.Duration, mass float64, gps *statevec.GPSFix) error

	// XHat returns the current state estimate.
	XHat() statevec.Vector
}

// PathPlanner is the narrow contract spec §2/C5 describes.
type PathPlanner interface {
	// SeedSetpoint is only called once, by the orchestrator, during P2
	// seeding (spec §3's ownership rule).
	SeedSetpoint(sp statevec.Setpoint)

	// UpdateSetpoint refreshes the setpoint from the current state
	// estimate and hover speed; called every iteration once seeding is
	// done (spec §4.6).
	UpdateSetpoint(xHat statevec.Vector, wHover float64)

	// Setpoint returns the current setpoint.
	Setpoint() statevec.Setpoint
}

// Controller is the narrow contract spec §2/C6 describes.
type Controller interface {
	// Compute returns the desired rotor speeds for the given state
	// estimate, setpoint and elapsed time since the last motor command
	// (spec §4.6).
	Compute(xHat statevec.Vector, sp statevec.Setpoint, dt time.Duration) (statevec.RotorSpeeds, error)
}
