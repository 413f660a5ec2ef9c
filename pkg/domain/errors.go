package domain

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation is returned when a component tries to mutate an element
// that cannot be mutated, such as the successor of END.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ErrConstruction is the sentinel wrapped by every ConstructionError.
var ErrConstruction = errors.New("invalid experiment construction")

// ErrAborted is the sentinel wrapped by every AbortError.
var ErrAborted = errors.New("aborted")

// ConstructionError reports malformed builder usage.
type ConstructionError struct {
	Op     string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConstruction.Error(), e.Op, e.Reason)
}

func (e *ConstructionError) Unwrap() error {
	return ErrConstruction
}

// NewConstructionError creates a ConstructionError for the given builder operation.
func NewConstructionError(op, format string, args ...any) error {
	return &ConstructionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// AbortError is an abort-class failure: an action gives up on its work and asks the
// graph to decide where execution resumes.
type AbortError struct {
	// ElementID is filled in by the engine with the element whose action aborted.
	ElementID string
	Cause     error
}

func (e *AbortError) Error() string {
	if e.ElementID == "" {
		return fmt.Sprintf("%s: %v", ErrAborted.Error(), e.Cause)
	}
	return fmt.Sprintf("%s at %s: %v", ErrAborted.Error(), e.ElementID, e.Cause)
}

// Is lets errors.Is(err, ErrAborted) match any AbortError.
func (e *AbortError) Is(target error) bool {
	return target == ErrAborted
}

func (e *AbortError) Unwrap() error {
	return e.Cause
}

// Abort wraps cause into an abort-class failure.
func Abort(cause error) error {
	if cause == nil {
		cause = errors.New("abort requested")
	}
	return &AbortError{Cause: cause}
}

// Abortf is like Abort with a formatted cause.
func Abortf(format string, args ...any) error {
	return Abort(fmt.Errorf(format, args...))
}

// AsAbort reports whether err is (or wraps) an AbortError and returns it.
func AsAbort(err error) (*AbortError, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort, true
	}
	return nil, false
}

// RunError is the fatal outcome of an experiment run.
type RunError struct {
	Experiment string
	ElementID  string
	// Action is the name of the action that originated the failure, if any.
	Action string
	// Element is the diagnostic rendering of the failing element.
	Element string
	Cause   error
}

func (e *RunError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("experiment %q failed at %s (action %s): %v", e.Experiment, e.ElementID, e.Action, e.Cause)
	}
	return fmt.Sprintf("experiment %q failed at %s: %v", e.Experiment, e.ElementID, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}
