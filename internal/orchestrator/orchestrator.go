// Package orchestrator implements the real-time fusion-and-actuation loop
// (C7), its two-phase shutdown (C8) and its manual operator input handler
// (C10) — the core of the flight control daemon. Every other package in
// this repository exists to build or feed this one.
package orchestrator

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/weihli/uquad/internal/config"
	"github.com/weihli/uquad/internal/gateway"
	"github.com/weihli/uquad/internal/iomux"
	"github.com/weihli/uquad/internal/logch"
	"github.com/weihli/uquad/internal/statevec"
)

// Gateways bundles every external collaborator the orchestrator consumes
// (C1-C6), assembled in init order by the caller (internal/cmd). Only the
// motor gateway is torn down here (Idle then Deinit, in finalShutdown); the
// other gateways have no teardown step.
type Gateways struct {
	Mux     iomux.Mux
	IMU     gateway.IMU
	GPS     gateway.GPS // nil when running without GPS
	Kalman  gateway.Kalman
	Motor   gateway.Motor
	Planner gateway.PathPlanner
	Ctrl    gateway.Controller
}

// Orchestrator runs the single-threaded control loop described by spec
// §2-§8: staged startup, timing gate, motor-rate limiting, fault
// accounting, GPS integration, path-planner/controller sequencing and
// manual operator input, ending in a two-phase shutdown.
type Orchestrator struct {
	cfg config.Config
	gw  Gateways
	log *logch.Channels

	clock    *clock
	phase    Phase
	timing   *timingGate
	faults   *faultCounter
	manual   *manualInput
	shutdown *shutdownManager
	stdin    *bufio.Reader

	useGPS     bool
	gpsZero    bool
	gpsZeroed  bool // SetZero has been called on the first 3D fix
	kalmanOK   bool // seeding has happened at least once
	pendingGPS *statevec.GPSFix

	rampStep         int
	lastRampW        statevec.RotorSpeeds
	warmupRunsIMU    int
	idledOnInterrupt bool
}

// New assembles an Orchestrator. notify/stop are os/signal.Notify/Stop (or
// test doubles); stdin feeds the manual-mode operator input handler (C10).
func New(cfg config.Config, gw Gateways, logChannels *logch.Channels, stdin io.Reader, notify func(chan<- os.Signal, ...os.Signal), stop func(chan<- os.Signal)) *Orchestrator {
	errLog := logChannels.Logger(logch.Err)
	return &Orchestrator{
		cfg:      cfg,
		gw:       gw,
		log:      logChannels,
		clock:    newClock(time.Now()),
		phase:    PhaseIMUWarmup,
		timing:   newTimingGate(cfg.TSMin, cfg.TSMax, cfg.TSErrorWait),
		faults:   newFaultCounter(cfg.MaxErrors, cfg.Fixed),
		manual:   newManualInput(cfg.ManualEulerStep, cfg.ManualZStep, cfg.ManualWeightStep, cfg.DefaultMass),
		shutdown: newShutdownManager(notify, stop, errLog),
		stdin:    bufio.NewReader(stdin),
		useGPS:   gw.GPS != nil && cfg.UseGPS,
		gpsZero:  cfg.GPSZero,
	}
}

// Run drives the loop until a fatal error, operator quit or external
// signal ends it, then idles the motors and returns. A nil error means an
// orderly shutdown (spec §6 "0 only on orderly shutdown"); any non-nil
// error should be translated by the caller into a process exit code via
// internal/errext.
func (o *Orchestrator) Run() error {
	done := make(chan struct{})
	go o.shutdown.watch(done)
	defer close(done)

	for {
		select {
		case <-o.shutdown.ForceQuit():
			return o.finalShutdown()
		default:
		}

		if err := o.iterate(); err != nil {
			if isFatal(err) {
				o.logChan(logch.Err).WithError(err).Error("fatal error, shutting down")
				if sdErr := o.finalShutdown(); sdErr != nil {
					o.logChan(logch.Err).WithError(sdErr).Error("shutdown after fatal error failed")
				}
				return err
			}
			// non-fatal iteration errors have already been folded into
			// fault accounting by iterate(); reaching here means a
			// structural problem (e.g. iomux wait failure) worth one
			// log line but not worth aborting the process over.
			o.logChan(logch.Err).WithError(err).Warn("iteration error")
		}
	}
}

type fatalError struct{ err error }

func (f fatalError) Error() string { return f.err.Error() }
func (f fatalError) Unwrap() error { return f.err }

func isFatal(err error) bool {
	_, ok := err.(fatalError)
	return ok
}

// iterate runs exactly one pass of the loop: readiness-wait, IMU read,
// GPS read, and — if IMU produced a usable averaged sample — the staged
// startup machine, Kalman, setpoint update, controller, rate-limited
// motor dispatch and operator input, in that invariant order (spec §5).
func (o *Orchestrator) iterate() error {
	o.clock.lastFrame = time.Now()
	defer o.logTiming()

	ready, err := o.gw.Mux.Wait(100 * time.Millisecond)
	if err != nil {
		return err
	}

	errIMU := o.readIMU(ready)
	errGPS := o.readGPS(ready)

	if o.useGPS && !o.gpsZeroed && o.clock.Elapsed(time.Now()) > o.cfg.GPSInitTimeout {
		return fatalError{fmt.Errorf("no gps 3D fix within GPS_INIT_TOUT (%s)", o.cfg.GPSInitTimeout)}
	}

	hadError := errIMU != nil || errGPS != nil
	if o.phase > PhaseIMUWarmup {
		switch o.faults.observe(hadError) {
		case faultOutcomeFatal:
			return fatalError{fmt.Errorf("count_err exceeded MAX_ERRORS (%d)", o.cfg.MaxErrors)}
		case faultOutcomeRecovered:
			o.logChan(logch.Err).WithField("count_err", o.faults.countErrors()).Info("recovered after sustained errors")
		}
	}

	avg, ok := o.gw.IMU.GetAverage()
	if !ok {
		return o.readOperatorInput(ready)
	}
	o.logChan(logch.IMUAvg).WithField("avg", avg).Debug("imu average consumed")

	if err := o.advance(avg); err != nil {
		return err
	}

	if o.shutdown.Interrupted() {
		// First phase of the two-phase quit (spec §5): idle the motors
		// immediately but keep sensor/Kalman logging running, which
		// advance() already did above.
		if !o.idledOnInterrupt {
			if err := o.gw.Motor.Idle(); err != nil {
				o.logChan(logch.Err).WithError(err).Error("failed to idle motors on interrupt")
			}
			o.idledOnInterrupt = true
		}
		return o.readOperatorInput(ready)
	}

	if err := o.planAndControl(); err != nil {
		return err
	}

	return o.readOperatorInput(ready)
}

func (o *Orchestrator) readIMU(ready iomux.Ready) error {
	if !ready.IMU && o.gw.IMU.Fd() >= 0 {
		return nil
	}
	if err := o.gw.IMU.ReadOne(); err != nil {
		o.logChan(logch.Err).WithError(err).Debug("imu read error")
		return err
	}
	o.clock.lastIMU = time.Now()
	return nil
}

func (o *Orchestrator) readGPS(ready iomux.Ready) error {
	if !o.useGPS {
		return nil
	}
	if !ready.GPS && o.gw.GPS.Fd() >= 0 {
		return nil
	}
	if err := o.gw.GPS.ReadOne(); err != nil {
		o.logChan(logch.Err).WithError(err).Debug("gps read error")
		return err
	}

	// The zeroed local frame is established once, from the first 3D fix
	// seen, independent of whether Kalman has been seeded yet.
	if !o.gpsZeroed && o.gw.GPS.HasUnread() && o.gw.GPS.Fix3D() {
		o.gw.GPS.SetZero()
		o.gpsZeroed = true
		o.logChan(logch.Buk).Info("gps zero frame established")
	}

	// GPS policy (spec §4.5): not consumed until at least one Kalman step
	// has run, and only queued for the *next* IMU average, never used
	// immediately.
	if o.kalmanOK && o.gw.GPS.HasUnread() && o.gw.GPS.Fix3D() {
		fix := o.gw.GPS.GetFix()
		o.pendingGPS = &fix
		o.clock.lastGPS = time.Now()
		o.logChan(logch.GPS).WithField("fix", fix).Debug("gps fix queued for next kalman update")
	}
	return nil
}

func (o *Orchestrator) logChan(name logch.Name) *logrus.Logger {
	return o.log.Logger(name)
}

// logTiming emits the loop's timing marks (spec §3's tv_last_* set) to the
// tv channel once per iteration. Marks that have never been set (e.g.
// tv_gps_last with GPS disabled) are reported as -1 rather than omitted, so
// a reader can distinguish "never happened" from "happened at t=0".
func (o *Orchestrator) logTiming() {
	o.logChan(logch.TV).WithFields(map[string]interface{}{
		"tv_last_frame":  o.clock.usSince(o.clock.lastFrame),
		"tv_last_imu":    o.clock.usSince(o.clock.lastIMU),
		"tv_last_kalman": o.clock.usSince(o.clock.lastKalman),
		"tv_last_m_cmd":  o.clock.usSince(o.clock.lastMotorCmd),
		"tv_gps_last":    o.clock.usSince(o.clock.lastGPS),
	}).Debug("timing marks")
}

// readOperatorInput implements C10 (spec §4.7): if stdin is ready, read
// exactly one keystroke and translate it into a setpoint/mass edit, a
// manual-mode toggle, or a quit request. An unrecognized key is logged
// and ignored rather than treated as an error.
func (o *Orchestrator) readOperatorInput(ready iomux.Ready) error {
	if !ready.Stdin {
		return nil
	}
	b, err := o.stdin.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	ev := o.manual.handle(manualKey(b), o.gw.Planner, o.gw.Motor)
	switch {
	case ev.quit:
		o.logChan(logch.Int).Info("operator requested quit")
		o.shutdown.RequestQuit()
	case ev.toggledOn:
		o.logChan(logch.Int).Info("manual mode enabled")
	case ev.toggledOff:
		o.logChan(logch.Int).Info("manual mode disabled")
	case ev.invalid:
		o.logChan(logch.Int).WithField("key", string(rune(ev.key))).Warn("invalid or ignored manual key")
	}
	return nil
}

// finalShutdown idles the motors and tears the motor driver down. It is
// the second phase of the two-phase quit (C8): called either when a
// second signal forces it, or when Run's loop exits on a fatal error.
func (o *Orchestrator) finalShutdown() error {
	if err := o.gw.Motor.Idle(); err != nil {
		o.logChan(logch.Err).WithError(err).Error("failed to idle motors during shutdown")
	}
	if err := o.gw.Motor.Deinit(); err != nil {
		return fmt.Errorf("motor deinit: %w", err)
	}
	return nil
}
