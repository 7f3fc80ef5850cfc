package errext

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/weihli/uquad/internal/errext/exitcodes"
)

func TestWithHintNesting(t *testing.T) {
	base := errors.New("motor deinit failed")
	once := WithHint(base, "a")
	twice := WithHint(once, "b")

	var h HasHint
	if !errors.As(twice, &h) {
		t.Fatal("expected the wrapped error to implement HasHint")
	}
	if got, want := h.Hint(), "b (a)"; got != want {
		t.Fatalf("hint nesting: got %q, want %q", got, want)
	}
}

func TestWithHintNilIsNil(t *testing.T) {
	if WithHint(nil, "x") != nil {
		t.Fatal("WithHint(nil, ...) must return nil")
	}
}

func TestWithExitCodeIfNoneFirstWins(t *testing.T) {
	base := errors.New("boom")
	first := WithExitCodeIfNone(base, exitcodes.FaultBurst)
	second := WithExitCodeIfNone(first, exitcodes.GenericError)

	var ec HasExitCode
	if !errors.As(second, &ec) {
		t.Fatal("expected the wrapped error to implement HasExitCode")
	}
	if got := ec.ExitCode(); got != exitcodes.FaultBurst {
		t.Fatalf("the first exit code set must win, got %v", got)
	}
}

func TestWithExitCodeIfNoneNilIsNil(t *testing.T) {
	if WithExitCodeIfNone(nil, exitcodes.GenericError) != nil {
		t.Fatal("WithExitCodeIfNone(nil, ...) must return nil")
	}
}

func TestFprintIncludesHintField(t *testing.T) {
	logger, hook := test.NewNullLogger()
	err := WithHint(errors.New("init failed"), "check the IMU device path")

	Fprint(logger, err)

	if len(hook.Entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(hook.Entries))
	}
	entry := hook.Entries[0]
	if entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected error level, got %v", entry.Level)
	}
	if entry.Data["hint"] != "check the IMU device path" {
		t.Fatalf("expected the hint field to be surfaced, got %v", entry.Data)
	}
}

func TestFprintNilIsNoop(t *testing.T) {
	logger, hook := test.NewNullLogger()
	Fprint(logger, nil)
	if len(hook.Entries) != 0 {
		t.Fatal("Fprint(nil) must not log anything")
	}
}
