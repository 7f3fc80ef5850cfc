// Package state groups the process-external state (CLI args, env vars,
// stdin, os.Exit, signals, the filesystem) behind one aggregate so that the
// rest of the module never touches the os package directly: a single
// orchestrator-owned aggregate passed by reference, no hidden singletons,
// modeled on grafana-k6's cmd/state.GlobalState / cmd.globalState.
package state

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Flags are the global, process-wide flags every subcommand can see.
type Flags struct {
	ConfigFilePath string
	LogOutput      string
	LogFormat      string
	NoColor        bool
	Verbose        bool
}

// DefaultFlags returns the flags used before any env var or CLI flag has
// been applied.
func DefaultFlags(configDir string) Flags {
	return Flags{
		ConfigFilePath: filepath.Join(configDir, "uquad", "config.json"),
		LogOutput:      "stderr",
	}
}

// Global is the orchestrator-owned aggregate of everything that would
// otherwise be a package-global. Every field is populated once in New and
// never mutated through the os/signal packages again.
type Global struct {
	Ctx context.Context

	FS    afero.Fs
	Getwd func() (string, error)
	Args  []string
	Env   map[string]string

	DefaultFlags, Flags Flags

	OutMutex       *sync.Mutex
	Stdout, Stderr io.Writer
	StdoutIsTTY    bool
	Stdin          io.Reader

	OSExit       func(int)
	SignalNotify func(chan<- os.Signal, ...os.Signal)
	SignalStop   func(chan<- os.Signal)

	Logger         *logrus.Logger
	FallbackLogger logrus.FieldLogger
}

// New builds a Global wired to the real os package. Tests use NewTest
// instead.
func New(ctx context.Context) *Global {
	isDumbTerm := os.Getenv("TERM") == "dumb"
	stdoutTTY := !isDumbTerm && (isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
	stderrTTY := !isDumbTerm && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	outMutex := &sync.Mutex{}
	stdout := colorable.NewColorable(os.Stdout)
	stderr := colorable.NewColorable(os.Stderr)

	env := BuildEnvMap(os.Environ())
	confDir, err := os.UserConfigDir()
	logger := &logrus.Logger{
		Out: stderr,
		Formatter: &logrus.TextFormatter{
			ForceColors:   stderrTTY,
			DisableColors: !stderrTTY || env["NO_COLOR"] != "",
		},
		Hooks: make(logrus.LevelHooks),
		Level: logrus.InfoLevel,
	}
	if err != nil {
		confDir = ".config"
		logger.WithError(err).Warn("could not determine config directory, using .config")
	}

	return &Global{
		Ctx:          ctx,
		FS:           afero.NewOsFs(),
		Getwd:        os.Getwd,
		Args:         append([]string{}, os.Args...),
		Env:          env,
		DefaultFlags: DefaultFlags(confDir),
		Flags:        DefaultFlags(confDir),
		OutMutex:     outMutex,
		Stdout:       stdout,
		Stderr:       stderr,
		StdoutIsTTY:  stdoutTTY,
		Stdin:        os.Stdin,
		OSExit:       os.Exit,
		SignalNotify: signal.Notify,
		SignalStop:   signal.Stop,
		Logger:       logger,
		FallbackLogger: &logrus.Logger{
			Out:       stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
	}
}

// BuildEnvMap parses `os.Environ()`-shaped KEY=VALUE pairs into a map.
func BuildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v := splitEnvPair(kv)
		env[k] = v
	}
	return env
}

func splitEnvPair(kv string) (string, string) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:]
		}
	}
	return kv, ""
}
