// Package errext provides typed error wrappers so the CLI can recover a
// hint, an exit code and a stack trace from an arbitrary returned error
// without every call site having to thread them through by hand.
package errext

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/weihli/uquad/internal/errext/exitcodes"
)

// HasHint is implemented by errors that carry an operator-facing hint.
type HasHint interface {
	error
	Hint() string
}

// HasExitCode is implemented by errors that dictate the process exit code.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// Exception is implemented by errors carrying a formatted stack trace.
type Exception interface {
	error
	StackTrace() string
}

// AbortReason classifies why the orchestrator gave up.
type AbortReason uint8

// Reasons the two-phase quit in internal/orchestrator can end the process.
const (
	AbortReasonNone AbortReason = iota
	AbortReasonSignal
	AbortReasonFaultBurst
	AbortReasonInit
)

type hintedError struct {
	error
	hint string
}

func (e hintedError) Hint() string { return e.hint }
func (e hintedError) Unwrap() error { return e.error }

// WithHint wraps err with an operator-facing hint. Hints nest: wrapping an
// already-hinted error prefixes the new hint and parenthesizes the old one,
// e.g. WithHint(WithHint(err, "a"), "b").Hint() == "b (a)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	var existing HasHint
	if errors.As(err, &existing) {
		hint = fmt.Sprintf("%s (%s)", hint, existing.Hint())
	}
	return hintedError{error: err, hint: hint}
}

type exitCodeError struct {
	error
	code exitcodes.ExitCode
}

func (e exitCodeError) ExitCode() exitcodes.ExitCode { return e.code }
func (e exitCodeError) Unwrap() error                { return e.error }

// WithExitCodeIfNone wraps err with code, unless err (or something it wraps)
// already carries an exit code, in which case the existing code wins.
func WithExitCodeIfNone(err error, code exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var existing HasExitCode
	if errors.As(err, &existing) {
		return err
	}
	return exitCodeError{error: err, code: code}
}

// Fprint logs err at error level, surfacing its stack trace (if it is an
// Exception) and its hint (if it is a HasHint) as structured fields.
func Fprint(logger logrus.FieldLogger, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	var exc Exception
	if errors.As(err, &exc) {
		msg = exc.StackTrace()
	}
	fields := logrus.Fields{}
	var h HasHint
	if errors.As(err, &h) {
		fields["hint"] = h.Hint()
	}
	logger.WithFields(fields).Error(msg)
}
