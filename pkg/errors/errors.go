// Package errors provides error wrapping utilities for context-aware error messages
// and the classified stage failure used by the provisioning workflow.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Wrap wraps an error with additional context information.
// If err is nil, it returns nil without wrapping.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// New, Is and As mirror the standard library so callers need a single errors import.
func New(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

// Kind classifies a fatal workflow failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindHostFailure
	KindCopy
	KindVerification
	KindCancelled
	KindInput
)

// Process exit codes, one per Kind.
const (
	ExitOK           = 0
	ExitUnknown      = 1
	ExitPrecondition = 2
	ExitHostFailure  = 3
	ExitCopy         = 4
	ExitVerification = 5
	ExitCancelled    = 6
	ExitInput        = 7
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindHostFailure:
		return "host_failure"
	case KindCopy:
		return "copy"
	case KindVerification:
		return "verification"
	case KindCancelled:
		return "cancelled"
	case KindInput:
		return "input"
	}
	return "unknown"
}

// ExitCode returns the process exit code for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindPrecondition:
		return ExitPrecondition
	case KindHostFailure:
		return ExitHostFailure
	case KindCopy:
		return ExitCopy
	case KindVerification:
		return ExitVerification
	case KindCancelled:
		return ExitCancelled
	case KindInput:
		return ExitInput
	}
	return ExitUnknown
}

// StageError is a fatal failure of one workflow stage.
type StageError struct {
	Stage   string
	Kind    Kind
	Message string
	Err     error
}

// NewStageError builds a StageError. err may be nil.
func NewStageError(stage string, kind Kind, message string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Message: message, Err: err}
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for the failure.
func (e *StageError) ExitCode() int {
	return e.Kind.ExitCode()
}

// AsStageError reports whether err wraps a StageError and returns it.
func AsStageError(err error) (*StageError, bool) {
	var se *StageError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ExitCode maps any error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if se, ok := AsStageError(err); ok {
		return se.ExitCode()
	}
	return ExitUnknown
}
