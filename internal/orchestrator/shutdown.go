package orchestrator

import (
	"os"
	"sync/atomic"
	"syscall"

	"github.com/sirupsen/logrus"
)

// shutdownManager converts asynchronous termination requests into the
// two-phase quit of spec §4.1/§5/C8: the first signal idles the motors
// and sets interrupted, letting sensor/Kalman logging continue; the
// second forces a full teardown. Grounded on grafana-k6's cmd/run.go
// sigC goroutine (os/signal.Notify into a buffered channel, read in a
// background goroutine that flips a shared flag rather than calling
// os.Exit directly from the signal handler).
type shutdownManager struct {
	interrupted atomic.Bool
	forceQuit   chan struct{}

	notify func(chan<- os.Signal, ...os.Signal)
	stop   func(chan<- os.Signal)

	log logrus.FieldLogger
}

func newShutdownManager(notify func(chan<- os.Signal, ...os.Signal), stop func(chan<- os.Signal), log logrus.FieldLogger) *shutdownManager {
	return &shutdownManager{
		forceQuit: make(chan struct{}),
		notify:    notify,
		stop:      stop,
		log:       log,
	}
}

// Interrupted reports whether the first signal/manual-quit has fired.
func (s *shutdownManager) Interrupted() bool { return s.interrupted.Load() }

// ForceQuit is closed when the second signal arrives.
func (s *shutdownManager) ForceQuit() <-chan struct{} { return s.forceQuit }

// RequestQuit is the manual-mode QUIT key's path into the same two-phase
// state machine the signal handler drives (spec §4.1: "operator demands
// quit during any phase" has the identical effect to a signal).
func (s *shutdownManager) RequestQuit() {
	if !s.interrupted.CompareAndSwap(false, true) {
		s.triggerForceQuit()
	}
}

func (s *shutdownManager) triggerForceQuit() {
	select {
	case <-s.forceQuit:
	default:
		close(s.forceQuit)
	}
}

// watch installs the OS signal handler and runs until the caller closes
// done or a second signal forces the quit; it is meant to run in its own
// goroutine, mirroring grafana-k6's sigC pattern.
func (s *shutdownManager) watch(done <-chan struct{}) {
	sigC := make(chan os.Signal, 16)
	s.notify(sigC, os.Interrupt, syscall.SIGQUIT)
	defer s.stop(sigC)

	for {
		select {
		case <-sigC:
			if !s.interrupted.CompareAndSwap(false, true) {
				s.log.Info("second termination signal received, forcing shutdown")
				s.triggerForceQuit()
				return
			}
			s.log.Info("termination signal received, idling motors")
		case <-done:
			return
		}
	}
}
