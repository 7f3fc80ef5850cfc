package orchestrator

import (
	"fmt"
	"time"

	"github.com/weihli/uquad/internal/logch"
)

// planAndControl implements spec §4.6: once seeding is done, every
// iteration refreshes the setpoint, computes the controller's desired
// rotor speeds, and rate-limits the actual motor dispatch. During the
// ramp (P3) the dispatched command is clamped per rampCommand rather
// than passed straight through; P4 passes the controller's output
// through unchanged (still subject to the motor gateway's own clamp).
func (o *Orchestrator) planAndControl() error {
	if o.phase < PhaseRamp {
		return nil
	}

	xHat := o.gw.Kalman.XHat()
	o.gw.Planner.UpdateSetpoint(xHat, o.gw.Motor.WHover())
	sp := o.gw.Planner.Setpoint()

	ctrlDt := o.controllerDt()
	wCtrl, err := o.gw.Ctrl.Compute(xHat, sp, ctrlDt)
	if err != nil {
		return fatalError{fmt.Errorf("controller: %w", err)}
	}
	o.logChan(logch.WCtrl).WithField("w_ctrl", wCtrl).Debug("controller output")

	w := wCtrl
	if o.phase == PhaseRamp {
		w = rampRotorSpeeds(wCtrl, o.gw.Motor.WMin(), o.gw.Motor.WHover(), o.rampStep, o.cfg.StartupKalman)
		o.lastRampW = w
		o.rampStep++
		if o.rampStep >= o.cfg.StartupKalman {
			o.phase, _ = advanceTo(o.phase, PhaseFreeControl)
			o.logChan(logch.Buk).WithField("phase", o.phase.String()).Info("phase transition")
		}
	}

	return o.dispatchMotor(w)
}

// controllerDt returns the interval since the last motor command (spec
// §4.6), not since the last Kalman update; zero on the very first call,
// before any motor command has been dispatched.
func (o *Orchestrator) controllerDt() time.Duration {
	if o.clock.lastMotorCmd.IsZero() {
		return 0
	}
	return time.Since(o.clock.lastMotorCmd)
}

// dispatchMotor implements the rate limiter of spec §4.3: dispatch only
// when MOT_UPDATE_T has elapsed since the last successful dispatch, or a
// full second has elapsed regardless.
func (o *Orchestrator) dispatchMotor(w [4]float64) error {
	now := time.Now()
	if !o.clock.lastMotorCmd.IsZero() {
		since := now.Sub(o.clock.lastMotorCmd)
		if since < o.cfg.MotUpdateT && since < time.Second {
			return nil
		}
	}

	if err := o.gw.Motor.Set(w); err != nil {
		return fatalError{fmt.Errorf("motor set: %w", err)}
	}
	o.clock.lastMotorCmd = now
	o.logChan(logch.W).WithField("w", o.gw.Motor.WCurr()).Debug("motor command dispatched")
	return nil
}
