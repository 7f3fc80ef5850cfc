package state

import (
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
)

// TestState is a Global wired to in-memory fakes, plus hooks the tests can
// inspect afterwards. Grounded on grafana-k6/cmd/state/test_state.go's
// NewGlobalTestState.
type TestState struct {
	*Global
	LogHook      *test.Hook
	Signals      chan chan<- os.Signal
	StoppedChans chan chan<- os.Signal
	ExitCode     *int
}

// NewTest builds a Global suitable for orchestrator/cmd tests: an in-memory
// filesystem, buffered stdout/stderr, a captured os.Exit, and fake
// SignalNotify/SignalStop that just record the channel they were given so a
// test can synthesize a signal by sending on it directly.
func NewTest() *TestState {
	logger := logrus.New()
	hook := test.NewLocal(logger)

	exitCode := new(int)
	notifyCh := make(chan chan<- os.Signal, 8)
	stopCh := make(chan chan<- os.Signal, 8)

	g := &Global{
		Ctx:          context.Background(),
		FS:           afero.NewMemMapFs(),
		Getwd:        func() (string, error) { return "/", nil },
		Args:         []string{"uquad"},
		Env:          map[string]string{},
		DefaultFlags: DefaultFlags("/config"),
		Flags:        DefaultFlags("/config"),
		OutMutex:     &sync.Mutex{},
		Stdout:       &bytes.Buffer{},
		Stderr:       &bytes.Buffer{},
		Stdin:        &bytes.Buffer{},
		OSExit:       func(code int) { *exitCode = code },
		SignalNotify: func(c chan<- os.Signal, _ ...os.Signal) { notifyCh <- c },
		SignalStop:   func(c chan<- os.Signal) { stopCh <- c },
		Logger:       logger,
		FallbackLogger: logger,
	}

	return &TestState{
		Global:       g,
		LogHook:      hook,
		Signals:      notifyCh,
		StoppedChans: stopCh,
		ExitCode:     exitCode,
	}
}
