package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the insitu library.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// The read path wraps failures in *OpError whose Kind is one of the taxonomy
// errors below, so callers can match both the kind and the underlying cause.

// Taxonomy errors - the kinds a run can fail (or stop) with.
var (
	// ErrConnection is returned when the source is unreachable or corrupt at open.
	ErrConnection = errors.New("source connection failed")

	// ErrTransportTimeout marks a run that ended because no step arrived in time.
	// It is a clean shutdown signal, not a crash.
	ErrTransportTimeout = errors.New("no step arrived within the wait bound")

	// ErrVariableMissing is returned when a named variable is absent in the current step.
	ErrVariableMissing = errors.New("variable missing")

	// ErrTransfer is returned when the engine fails mid-read.
	ErrTransfer = errors.New("data transfer failed")

	// ErrBackend is returned when a backend publish, execute or lifecycle call fails.
	ErrBackend = errors.New("backend failure")
)

// Transport client errors.
var (
	// ErrNotInStep is returned when a step-scoped call is made outside a Ready step.
	ErrNotInStep = errors.New("no step in progress")

	// ErrStepInProgress is returned when BeginStep is called before EndStep.
	ErrStepInProgress = errors.New("step already in progress")

	// ErrClosed is returned when the client or engine was closed.
	ErrClosed = errors.New("transport closed")

	// ErrUnknownEngine is returned when no engine is registered under the name.
	ErrUnknownEngine = errors.New("unknown engine")
)

// Common errors - shared by configuration, backends and the group.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownBackend is returned when no backend is registered under the name.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrAborted is returned when a group member aborted the run.
	ErrAborted = errors.New("process group aborted")

	// ErrInvalidMesh is returned when a mesh payload cannot be assembled or fails validation.
	ErrInvalidMesh = errors.New("invalid mesh payload")

	// ErrInvalidWorldSize is returned when rank or world size are out of range.
	ErrInvalidWorldSize = errors.New("invalid rank or world size")
)

// NoStep is used in OpError.Step when the failing operation is not step-scoped.
const NoStep = ^uint64(0)

// OpError describes a failed operation on the read path.
//
// errors.Is matches both Kind and the wrapped cause:
//
//	if errors.Is(err, insitu.ErrTransfer) { ... }
type OpError struct {
	// Kind is one of the taxonomy sentinels (ErrConnection, ErrTransfer, ...).
	Kind error

	// Op is the failing operation ("open", "begin_step", "read", "publish", ...).
	Op string

	// Variable is the variable involved, if any.
	Variable string

	// Step is the step number, or NoStep.
	Step uint64

	// Err is the underlying cause. May be nil.
	Err error
}

// NewOpError creates an OpError that is not bound to a step.
func NewOpError(kind error, op string, err error) *OpError {
	return &OpError{Kind: kind, Op: op, Step: NoStep, Err: err}
}

// Error implements error.
func (e *OpError) Error() string {
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("operation failed")
	}
	b.WriteString(": ")
	b.WriteString(e.Op)
	if e.Variable != "" {
		fmt.Fprintf(&b, " %q", e.Variable)
	}
	if e.Step != NoStep {
		fmt.Fprintf(&b, " (step %d)", e.Step)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

// KindOf returns the taxonomy kind of err, or nil when err carries none.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range []error{ErrConnection, ErrTransportTimeout, ErrVariableMissing, ErrTransfer, ErrBackend} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}

// IsFatal reports whether err must abort the whole run.
//
// Timeouts are a clean shutdown and missing variables are decided by the
// caller (fatal for the primary variable only); everything else is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	return !errors.Is(err, ErrTransportTimeout)
}
