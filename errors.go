package insitu

import (
	"errors"

	"github.com/arloliu/insitu/types"
)

// Sentinel errors, re-exported from the types package.
//
// Read-path failures are returned as *OpError whose Kind is one of the first
// five sentinels; errors.Is matches both the kind and the cause.
var (
	// ErrConnection is returned when the source cannot be attached or the connection is lost.
	ErrConnection = types.ErrConnection

	// ErrTransportTimeout marks a bounded wait that elapsed. It is a clean shutdown.
	ErrTransportTimeout = types.ErrTransportTimeout

	// ErrVariableMissing is returned when the primary variable is absent from a step.
	ErrVariableMissing = types.ErrVariableMissing

	// ErrTransfer is returned when a block or selection transfer fails.
	ErrTransfer = types.ErrTransfer

	// ErrBackend is returned when the analysis backend fails.
	ErrBackend = types.ErrBackend

	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrNotInStep is returned for step-scoped calls outside a step.
	ErrNotInStep = types.ErrNotInStep

	// ErrStepInProgress is returned when BeginStep is called inside a step.
	ErrStepInProgress = types.ErrStepInProgress

	// ErrClosed is returned when the transport was closed.
	ErrClosed = types.ErrClosed

	// ErrUnknownEngine is returned for an unregistered engine name.
	ErrUnknownEngine = types.ErrUnknownEngine

	// ErrUnknownBackend is returned for an unregistered backend name.
	ErrUnknownBackend = types.ErrUnknownBackend

	// ErrAborted is returned when a group member aborted the run.
	ErrAborted = types.ErrAborted

	// ErrInvalidMesh is returned when a payload fails validation.
	ErrInvalidMesh = types.ErrInvalidMesh

	// ErrAlreadyRunning is returned when Run is called twice on the same Runner.
	ErrAlreadyRunning = errors.New("runner already started")
)
