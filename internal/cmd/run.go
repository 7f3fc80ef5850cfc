package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/weihli/uquad/internal/config"
	"github.com/weihli/uquad/internal/errext"
	"github.com/weihli/uquad/internal/errext/exitcodes"
	"github.com/weihli/uquad/internal/gateway"
	"github.com/weihli/uquad/internal/iomux"
	"github.com/weihli/uquad/internal/logch"
	"github.com/weihli/uquad/internal/orchestrator"
	"github.com/weihli/uquad/internal/sim"
	"github.com/weihli/uquad/internal/state"
	"github.com/weihli/uquad/internal/statevec"
)

// runOrchestrator performs spec §3's strict init order — logs, I/O mux,
// IMU, GPS (requires IMU first), Kalman, motor, controller, path planner —
// then runs the loop, mirroring grafana-k6/cmd/run.go's buildExecutionState
// + engine.Run shape but for a single long-lived control loop instead of a
// bounded test run.
func runOrchestrator(gs *state.Global, conf config.Config, imuDevice, gpsDevice, logDir string) error {
	epoch := time.Now()
	logChannels, err := logch.Open(gs.FS, logDir, epoch)
	if err != nil {
		return errext.WithExitCodeIfNone(
			errext.WithHint(err, "failed to open log channels"),
			exitcodes.InitFailed,
		)
	}
	defer logChannels.Close()

	logChannels.Logger(logch.Err).WithFields(map[string]interface{}{
		"debug":         conf.Debug,
		"use_gps":       conf.UseGPS,
		"gps_zero":      conf.GPSZero,
		"imu_comm_fake": conf.IMUCommFake,
		"kalman_bias":   conf.KalmanBias,
		"ctrl_integral": conf.CtrlIntegral,
		"full_control":  conf.FullControl,
		"ol_ts_stabil":  conf.OLTsStabil,
	}).Info("starting with configuration")

	stdinFd := -1
	if f, ok := gs.Stdin.(*os.File); ok {
		stdinFd = int(f.Fd())
	}
	// The IMU gateway is always a recorded-log replay (spec §1 puts the
	// real driver out of scope), so the multiplexer is always the
	// sleep-to-timestamp Fake rather than a real unix.Poll — iomux.New
	// remains available for a future real-descriptor IMU gateway. Its
	// sleep source is attached once the IMU replay is open.
	mux := &iomux.Fake{StdinFd: stdinFd}

	imu, err := openIMU(gs.FS, imuDevice)
	if err != nil {
		return errext.WithExitCodeIfNone(errext.WithHint(err, "failed to open IMU device"), exitcodes.InitFailed)
	}
	mux.Next = imu.NextInterval

	var gps gateway.GPS
	if conf.UseGPS {
		gps, err = openGPS(gs.FS, gpsDevice, conf.GPSZero)
		if err != nil {
			return errext.WithExitCodeIfNone(errext.WithHint(err, "failed to open GPS source"), exitcodes.InitFailed)
		}
	}

	kalman := sim.NewLinearKalman(conf.KalmanBias)

	motorSink, err := gs.FS.OpenFile(logDir+"/motor_tx", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errext.WithExitCodeIfNone(errext.WithHint(err, "failed to open motor transport"), exitcodes.MotorDriverFailed)
	}
	motor := sim.NewSerialMotor(motorSink, 0, 1000, conf.DefaultMass, 4.0)

	ctrl := sim.NewPDController(motor.WHover(), conf.CtrlIntegral)
	planner := sim.NewHoverPlanner(conf.FullControl)

	gws := orchestrator.Gateways{
		Mux:     mux,
		IMU:     imu,
		GPS:     gps,
		Kalman:  kalman,
		Motor:   motor,
		Planner: planner,
		Ctrl:    ctrl,
	}
	orch := orchestrator.New(conf, gws, logChannels, gs.Stdin, gs.SignalNotify, gs.SignalStop)

	if err := orch.Run(); err != nil {
		return errext.WithExitCodeIfNone(err, exitcodes.GenericError)
	}
	return nil
}

// openIMU always builds a replay gateway: spec §1 puts the real IMU
// driver's raw->engineering conversion and averaging buffer out of scope,
// so the orchestrator's only in-scope IMU collaborator is one fed from a
// recorded log, whether or not --imu-fake was passed (kept for CLI/config
// parity with the original compile-time flag).
func openIMU(fs afero.Fs, path string) (*sim.ReplayIMU, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading imu device/log %s: %w", path, err)
	}
	return sim.NewReplayIMU(bytes.NewReader(data), statevec.NullEstimate{})
}

// openGPS builds a GPS gateway: ZeroGPS when --gps-zero is set and no
// device path is given (spec §4.5's synthetic mode), otherwise a replay
// source parsed from the given log path — the real NMEA/USB GPS parser is
// out of scope per spec §1.
func openGPS(fs afero.Fs, path string, zero bool) (gateway.GPS, error) {
	if path == "" {
		if zero {
			return sim.NewZeroGPS(), nil
		}
		return nil, fmt.Errorf("live GPS is out of scope; pass a gps_device log or --gps-zero")
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading gps device/log %s: %w", path, err)
	}
	fixes, err := sim.ParseGPSLog(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return sim.NewReplayGPS(fixes), nil
}
