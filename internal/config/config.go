// Package config assembles the orchestrator's run-time configuration
// record from CLI flags, an optional JSON file and environment variables,
// layered exactly as
// grafana-k6/cmd/config.go's getConsolidatedConfig does: CLI defaults, then
// file, then env, then CLI again (so an explicit flag always wins).
//
// This record is the run-time stand-in for the compile-time flags spec §6
// names (DEBUG, USE_GPS, GPS_ZERO, IMU_COMM_FAKE, KALMAN_BIAS,
// CTRL_INTEGRAL, FULL_CONTROL, OL_TS_STABIL) plus every named timing/fault
// constant from spec §6, per design note §9 ("compile-time mode flags ...
// should become a configuration record chosen at process start").
package config

import (
	"encoding/json"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/afero"
	null "gopkg.in/guregu/null.v3"
)

// Config is the full, layered configuration record for one run.
type Config struct {
	// Modes — compile-time flags from the original control loop, now runtime-selectable.
	Debug         bool `json:"debug" envconfig:"debug"`
	UseGPS        bool `json:"useGps" envconfig:"use_gps"`
	GPSZero       bool `json:"gpsZero" envconfig:"gps_zero"`
	IMUCommFake   bool `json:"imuCommFake" envconfig:"imu_comm_fake"`
	KalmanBias    bool `json:"kalmanBias" envconfig:"kalman_bias"`
	CtrlIntegral  bool `json:"ctrlIntegral" envconfig:"ctrl_integral"`
	FullControl   bool `json:"fullControl" envconfig:"full_control"`
	OLTsStabil    int  `json:"olTsStabil" envconfig:"ol_ts_stabil"`

	// Staged startup machine (spec §4.1, §6).
	StartupRuns   int `json:"startupRuns" envconfig:"startup_runs"`
	StartupKalman int `json:"startupKalman" envconfig:"startup_kalman"`

	// Timing gate (spec §4.2, §6).
	TSMin       time.Duration `json:"tsMin" envconfig:"ts_min"`
	TSMax       time.Duration `json:"tsMax" envconfig:"ts_max"`
	TSDefault   time.Duration `json:"tsDefault" envconfig:"ts_default_us"`
	TSErrorWait int           `json:"tsErrorWait" envconfig:"ts_error_wait"`

	// Motor update rate limiter (spec §4.3, §6).
	MotUpdateT      time.Duration `json:"motUpdateT" envconfig:"mot_update_t"`
	MotUpdateMaxUS  time.Duration `json:"motUpdateMaxUs" envconfig:"mot_update_max_us"`

	// Fault accounting (spec §4.4, §6).
	MaxErrors int `json:"maxErrors" envconfig:"max_errors"`
	Fixed     int `json:"fixed" envconfig:"fixed"`

	// GPS integration policy (spec §4.5).
	GPSInitTimeout time.Duration `json:"gpsInitTimeout" envconfig:"gps_init_timeout"`

	// Manual mode input (spec §4.7).
	ManualEulerStep  float64 `json:"manualEulerStep" envconfig:"manual_euler_step"`
	ManualZStep      float64 `json:"manualZStep" envconfig:"manual_z_step"`
	ManualWeightStep float64 `json:"manualWeightStep" envconfig:"manual_weight_step"`
	DefaultMass      float64 `json:"defaultMass" envconfig:"masa_default"`

	LogDir null.String `json:"logDir" envconfig:"log_dir"`
}

// Default returns the configuration used before any file/env/flag layer is
// applied. The timing numbers mirror the scenario walkthroughs in spec §8
// (10ms nominal IMU period, accepted intervals from 8ms to 15ms).
func Default() Config {
	return Config{
		StartupRuns:      10,
		StartupKalman:    100,
		TSMin:            8 * time.Millisecond,
		TSMax:            15 * time.Millisecond,
		TSDefault:        10 * time.Millisecond,
		TSErrorWait:      50,
		MotUpdateT:       20 * time.Millisecond,
		MotUpdateMaxUS:   20 * time.Millisecond,
		MaxErrors:        20,
		Fixed:            3,
		GPSInitTimeout:   10 * time.Second,
		ManualEulerStep:  0.02,
		ManualZStep:      0.05,
		ManualWeightStep: 0.05,
		DefaultMass:      1.0,
	}
}

// Apply overlays cfg on top of c, keeping c's values wherever cfg is the
// Config zero value would otherwise silently erase an already-set value.
// Most fields here are plain scalars (timing constants are never
// meaningfully zero), so non-zero-wins is the right merge rule; LogDir
// uses null.String to distinguish "unset" from "".
func (c Config) Apply(cfg Config) Config {
	out := c
	if cfg.Debug {
		out.Debug = true
	}
	if cfg.UseGPS {
		out.UseGPS = true
	}
	if cfg.GPSZero {
		out.GPSZero = true
	}
	if cfg.IMUCommFake {
		out.IMUCommFake = true
	}
	if cfg.KalmanBias {
		out.KalmanBias = true
	}
	if cfg.CtrlIntegral {
		out.CtrlIntegral = true
	}
	if cfg.FullControl {
		out.FullControl = true
	}
	if cfg.OLTsStabil != 0 {
		out.OLTsStabil = cfg.OLTsStabil
	}
	if cfg.StartupRuns != 0 {
		out.StartupRuns = cfg.StartupRuns
	}
	if cfg.StartupKalman != 0 {
		out.StartupKalman = cfg.StartupKalman
	}
	if cfg.TSMin != 0 {
		out.TSMin = cfg.TSMin
	}
	if cfg.TSMax != 0 {
		out.TSMax = cfg.TSMax
	}
	if cfg.TSDefault != 0 {
		out.TSDefault = cfg.TSDefault
	}
	if cfg.TSErrorWait != 0 {
		out.TSErrorWait = cfg.TSErrorWait
	}
	if cfg.MotUpdateT != 0 {
		out.MotUpdateT = cfg.MotUpdateT
	}
	if cfg.MotUpdateMaxUS != 0 {
		out.MotUpdateMaxUS = cfg.MotUpdateMaxUS
	}
	if cfg.MaxErrors != 0 {
		out.MaxErrors = cfg.MaxErrors
	}
	if cfg.Fixed != 0 {
		out.Fixed = cfg.Fixed
	}
	if cfg.GPSInitTimeout != 0 {
		out.GPSInitTimeout = cfg.GPSInitTimeout
	}
	if cfg.ManualEulerStep != 0 {
		out.ManualEulerStep = cfg.ManualEulerStep
	}
	if cfg.ManualZStep != 0 {
		out.ManualZStep = cfg.ManualZStep
	}
	if cfg.ManualWeightStep != 0 {
		out.ManualWeightStep = cfg.ManualWeightStep
	}
	if cfg.DefaultMass != 0 {
		out.DefaultMass = cfg.DefaultMass
	}
	if cfg.LogDir.Valid {
		out.LogDir = cfg.LogDir
	}
	return out
}

// ReadFile reads a JSON config file from fs, returning the zero Config (not
// an error) if path is empty.
func ReadFile(fs afero.Fs, path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return Config{}, err
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ReadEnv reads UQUAD_-prefixed environment variables into a Config.
func ReadEnv() (Config, error) {
	var c Config
	err := envconfig.Process("uquad", &c)
	return c, err
}

// Consolidate starts from Default() as the floor and applies cliConf, then
// the file, then the environment, then cliConf again (so the environment
// wins over the file, and CLI flags win over both).
func Consolidate(fs afero.Fs, filePath string, cliConf Config) (Config, error) {
	conf := Default().Apply(cliConf)

	fileConf, err := ReadFile(fs, filePath)
	if err != nil {
		return Config{}, err
	}
	conf = conf.Apply(fileConf)

	envConf, err := ReadEnv()
	if err != nil {
		return Config{}, err
	}
	conf = conf.Apply(envConf).Apply(cliConf)

	return conf, nil
}
