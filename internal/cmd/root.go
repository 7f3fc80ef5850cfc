// Package cmd wires the cobra CLI, consolidated configuration, logging
// channels and gateway construction into a runnable Orchestrator, mirroring
// grafana-k6's cmd/root.go: a single rootCommand holding a *state.Global,
// translating a failed Execute() into the right process exit code via
// internal/errext.
package cmd

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/weihli/uquad/internal/config"
	"github.com/weihli/uquad/internal/errext"
	"github.com/weihli/uquad/internal/errext/exitcodes"
	"github.com/weihli/uquad/internal/state"
)

// rootFlags are the uquad-specific persistent flags layered on top of
// state.Flags — the runtime stand-ins for spec §6's compile-time flags.
type rootFlags struct {
	debug        bool
	useGPS       bool
	gpsZero      bool
	imuFake      bool
	kalmanBias   bool
	ctrlIntegral bool
	fullControl  bool
	olTsStabil   int
}

func rootPersistentFlagSet(gs *state.Global, rf *rootFlags) *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVarP(&gs.Flags.ConfigFilePath, "config", "c", gs.DefaultFlags.ConfigFilePath, "JSON config file")
	flags.StringVar(&gs.Flags.LogOutput, "log-output", gs.DefaultFlags.LogOutput, "log output destination")
	flags.StringVar(&gs.Flags.LogFormat, "log-format", gs.DefaultFlags.LogFormat, "log output format")
	flags.BoolVar(&gs.Flags.NoColor, "no-color", gs.DefaultFlags.NoColor, "disable colored output")
	flags.BoolVarP(&gs.Flags.Verbose, "verbose", "v", gs.DefaultFlags.Verbose, "enable debug logging")

	flags.BoolVar(&rf.debug, "debug", false, "enable DEBUG-level diagnostics")
	flags.BoolVar(&rf.useGPS, "use-gps", false, "fuse GPS fixes into the state estimate")
	flags.BoolVar(&rf.gpsZero, "gps-zero", false, "synthesize a zero-origin GPS fix once per second (HOVER mode only)")
	flags.BoolVar(&rf.imuFake, "imu-fake", false, "replay a recorded IMU log instead of reading a live device")
	flags.BoolVar(&rf.kalmanBias, "kalman-bias", false, "enable accelerometer bias estimation slots")
	flags.BoolVar(&rf.ctrlIntegral, "ctrl-integral", false, "enable the controller's integral term")
	flags.BoolVar(&rf.fullControl, "full-control", false, "let the path planner track an externally pushed setpoint")
	flags.IntVar(&rf.olTsStabil, "ol-ts-stabil", 0, "extra stable samples required before leaving IMU warmup")
	return flags
}

// rootCommand mirrors grafana-k6's rootCommand: the cobra command plus the
// Global it closes over.
type rootCommand struct {
	gs  *state.Global
	cmd *cobra.Command
}

func newRootCommand(gs *state.Global) *rootCommand {
	rc := &rootCommand{gs: gs}
	var rf rootFlags

	cmd := &cobra.Command{
		Use:           "uquad <imu_device> [log_dir] [gps_device]",
		Short:         "quadrotor real-time flight control loop",
		Args:          cobra.RangeArgs(1, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.run(args, &rf)
		},
	}
	cmd.PersistentFlags().AddFlagSet(rootPersistentFlagSet(gs, &rf))
	cmd.SetArgs(gs.Args[1:])
	cmd.SetOut(gs.Stdout)
	cmd.SetErr(gs.Stderr)
	cmd.SetIn(gs.Stdin)

	rc.cmd = cmd
	return rc
}

func (rc *rootCommand) run(args []string, rf *rootFlags) error {
	if rf.debug {
		rc.gs.Logger.SetLevel(logrus.DebugLevel)
	}
	if rc.gs.Flags.Verbose {
		rc.gs.Logger.SetLevel(logrus.DebugLevel)
	}

	cliConf := config.Config{
		Debug:        rf.debug,
		UseGPS:       rf.useGPS,
		GPSZero:      rf.gpsZero,
		IMUCommFake:  rf.imuFake,
		KalmanBias:   rf.kalmanBias,
		CtrlIntegral: rf.ctrlIntegral,
		FullControl:  rf.fullControl,
		OLTsStabil:   rf.olTsStabil,
	}

	conf, err := config.Consolidate(rc.gs.FS, rc.gs.Flags.ConfigFilePath, cliConf)
	if err != nil {
		return errext.WithExitCodeIfNone(
			errext.WithHint(err, "failed to load configuration"),
			exitcodes.InvalidConfig,
		)
	}

	logDir := conf.LogDir.ValueOrZero()
	if len(args) >= 2 {
		logDir = args[1]
	}
	if logDir == "" {
		logDir = "/var/log/uquad"
	}

	imuDevice := args[0]
	var gpsDevice string
	if len(args) >= 3 {
		gpsDevice = args[2]
	}

	return runOrchestrator(rc.gs, conf, imuDevice, gpsDevice, logDir)
}

// Execute builds the real process Global and runs the root command,
// translating any returned error into a process exit code exactly as
// grafana-k6/cmd/root.go's Execute() does.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gs := state.New(ctx)
	rc := newRootCommand(gs)

	if err := rc.cmd.Execute(); err != nil {
		errext.Fprint(gs.Logger, err)

		code := exitcodes.GenericError
		var ecerr errext.HasExitCode
		if errors.As(err, &ecerr) {
			code = ecerr.ExitCode()
		}
		gs.OSExit(int(code))
		return
	}
	gs.OSExit(0)
}
