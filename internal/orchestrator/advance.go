package orchestrator

import (
	"fmt"
	"time"

	"github.com/weihli/uquad/internal/logch"
	"github.com/weihli/uquad/internal/statevec"
)

// advance runs the staged startup machine (spec §4.1) and, from P2
// onward, the Kalman step. It is only called when the IMU gateway has
// produced a usable averaged sample (its "timestamp" field doubling as
// the elapsed interval since the previous consumed average — spec §3).
// Counting individual raw IMU frames within the averaging window is the
// IMU gateway's own concern (out of scope per spec §1); here one
// averaged sample is treated as one "frame" of the warmup window, which
// preserves the STARTUP_RUNS semantics the orchestrator actually owns.
func (o *Orchestrator) advance(avg statevec.IMUAverage) error {
	switch o.phase {
	case PhaseIMUWarmup:
		return o.advanceWarmup(avg)
	case PhaseIMUCalibrating:
		return o.advanceCalibrating()
	default:
		return o.advanceEstimation(avg)
	}
}

// warmupTarget is STARTUP_RUNS extended by OL_TS_STABIL, matching the
// original source's STARTUP_RUNS = 10 + OL_TS_STABIL.
func (o *Orchestrator) warmupTarget() int {
	return o.cfg.StartupRuns + o.cfg.OLTsStabil
}

func (o *Orchestrator) advanceWarmup(avg statevec.IMUAverage) error {
	if avg.Interval >= o.cfg.TSMin && avg.Interval <= o.cfg.TSMax {
		o.warmupRunsIMU++
	} else {
		o.warmupRunsIMU = 0
	}

	if o.warmupRunsIMU >= o.warmupTarget() {
		o.phase, _ = advanceTo(o.phase, PhaseIMUCalibrating)
		o.logChan(logch.Buk).WithField("phase", o.phase.String()).Info("phase transition")
		if err := o.gw.IMU.BeginCalibration(); err != nil {
			return fatalError{fmt.Errorf("begin imu calibration: %w", err)}
		}
	}
	return nil
}

func (o *Orchestrator) advanceCalibrating() error {
	if !o.gw.IMU.CalibrationDone() {
		return nil
	}
	o.phase, _ = advanceTo(o.phase, PhaseKalmanSeeding)
	o.logChan(logch.Buk).WithField("phase", o.phase.String()).Info("phase transition")
	return o.seed()
}

// seed implements P2 (spec §4.1): seeds x_hat and sp from the
// calibration null-estimate and, if a GPS fix is already queued,
// position. The first Kalman call uses a synthetic Δt of TS_DEFAULT_US.
func (o *Orchestrator) seed() error {
	estimate := o.gw.IMU.CalibrationResult()

	var gps *statevec.GPSFix
	if o.useGPS && o.pendingGPS != nil {
		gps = o.pendingGPS
	} else if o.gpsZero {
		zero := statevec.GPSFix{Quality: statevec.Fix3D}
		gps = &zero
	}

	// Recording tv_last_kalman before rather than after this call keeps
	// the mark at the start of seeding even if Seed itself is slow (spec
	// §9's second open question; the original records it after).
	o.clock.lastKalman = time.Now()

	if err := o.gw.Kalman.Seed(estimate, gps); err != nil {
		return fatalError{fmt.Errorf("kalman seed: %w", err)}
	}

	sp := statevec.Setpoint{}
	sp.X = sp.X.Set(statevec.PSI, estimate.Psi)
	sp.X = sp.X.Set(statevec.PHI, estimate.Phi)
	sp.X = sp.X.Set(statevec.THETA, estimate.Theta)
	if gps != nil {
		sp.X = sp.X.Set(statevec.X, gps.Pos[0])
		sp.X = sp.X.Set(statevec.Y, gps.Pos[1])
		sp.X = sp.X.Set(statevec.Z, gps.Pos[2])
	}
	o.gw.Planner.SeedSetpoint(sp)

	o.kalmanOK = true
	o.pendingGPS = nil

	o.phase, _ = advanceTo(o.phase, PhaseRamp)
	o.logChan(logch.Buk).WithField("phase", o.phase.String()).Info("phase transition")
	o.rampStep = 0
	o.lastRampW = statevec.RotorSpeeds{o.gw.Motor.WMin(), o.gw.Motor.WMin(), o.gw.Motor.WMin(), o.gw.Motor.WMin()}

	o.logChan(logch.KalmanIn).WithField("dt_us", o.cfg.TSDefault.Microseconds()).Info("seed kalman call")
	o.logChan(logch.XHat).WithField("x_hat", o.gw.Kalman.XHat()).Debug("x_hat after seed")
	return nil
}

// advanceEstimation runs the timing gate and the Kalman update for P3
// and P4. The rotor speeds fed to Kalman are the *previously commanded*
// ones — lastRampW during the ramp, the motor gateway's own w_curr once
// free control is reached — since the Kalman gateway's contract is
// "given latest rotor speeds", not the ones this very iteration will
// produce.
func (o *Orchestrator) advanceEstimation(avg statevec.IMUAverage) error {
	gate, err := o.timing.apply(avg.Interval)
	if err != nil {
		return fatalError{fmt.Errorf("timing gate: %w", err)}
	}
	if gate.warn {
		o.logChan(logch.TErr).WithField("interval_us", avg.Interval.Microseconds()).Warn("imu interval out of range, clamped")
	}

	var gps *statevec.GPSFix
	if o.pendingGPS != nil {
		gps = o.pendingGPS
		o.pendingGPS = nil
	}

	w := o.lastRampW
	if o.phase == PhaseFreeControl {
		w = o.gw.Motor.WCurr()
	}

	mass := o.gw.Motor.Weight() / gAccel
	if err := o.gw.Kalman.Update(w, avg, gate.dt, mass, gps); err != nil {
		return fatalError{fmt.Errorf("kalman update: %w", err)}
	}
	o.clock.lastKalman = time.Now()
	o.clock.runsKalman++

	o.logChan(logch.XHat).WithField("x_hat", o.gw.Kalman.XHat()).Debug("x_hat updated")
	return nil
}
