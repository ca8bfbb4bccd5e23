package types

import "context"

// BackendConfig is passed to Backend.Initialize.
type BackendConfig struct {
	// Name is the registry name the backend was created under.
	Name string

	// RunID identifies this reader run; shared by all steps.
	RunID string

	// Options holds backend-specific settings.
	Options map[string]string
}

// Option returns a backend option or def when unset.
func (c BackendConfig) Option(key, def string) string {
	if v, ok := c.Options[key]; ok && v != "" {
		return v
	}

	return def
}

// Action is an optional description handed to Backend.Execute.
type Action struct {
	// Name identifies the action (for example a pipeline or query name).
	Name string

	// Params holds action parameters.
	Params map[string]string
}

// Backend is an analysis backend that consumes one mesh payload per step.
//
// The orchestration loop calls Initialize once, then Publish and Execute for
// every step in that order, and Finalize once at shutdown. Backends never see
// more than one payload at a time; the payload is only valid during the step.
type Backend interface {
	// Initialize prepares the backend for the given process group.
	Initialize(ctx context.Context, group ProcessGroup, cfg BackendConfig) error

	// Publish hands the step's payload to the backend.
	Publish(ctx context.Context, payload *MeshPayload) error

	// Execute runs the backend's analysis on the published payload.
	//
	// action may be nil.
	Execute(ctx context.Context, action *Action) error

	// Finalize releases backend resources.
	Finalize(ctx context.Context) error
}
