package types

import "context"

// Hooks defines callbacks for orchestration loop events.
//
// All hooks are optional and run synchronously on the loop goroutine, so they
// see the payload while its buffers are still valid. Hook errors are logged
// but never fail the run.
//
// Example:
//
//	hooks := &insitu.Hooks{
//	    OnStep: func(ctx context.Context, payload *insitu.MeshPayload, step uint64) error {
//	        frames <- len(payload.Domains)
//	        return nil
//	    },
//	}
type Hooks struct {
	// OnStep is called after the payload was published and executed, before the
	// step is released.
	OnStep func(ctx context.Context, payload *MeshPayload, step uint64) error

	// OnStateChanged is called when the loop transitions between states.
	OnStateChanged func(ctx context.Context, from, to LoopState) error

	// OnError is called when a non-fatal error occurs (for example a missing
	// secondary variable).
	OnError func(ctx context.Context, err error) error
}
