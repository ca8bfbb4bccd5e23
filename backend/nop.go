package backend

import (
	"context"

	"github.com/arloliu/insitu/types"
)

// Nop is a backend that discards every payload.
type Nop struct{}

var _ types.Backend = (*Nop)(nil)

// NewNop creates a no-op backend.
func NewNop() *Nop {
	return &Nop{}
}

// Initialize is a no-op.
func (n *Nop) Initialize(_ context.Context, _ types.ProcessGroup, _ types.BackendConfig) error {
	return nil
}

// Publish is a no-op.
func (n *Nop) Publish(_ context.Context, _ *types.MeshPayload) error {
	return nil
}

// Execute is a no-op.
func (n *Nop) Execute(_ context.Context, _ *types.Action) error {
	return nil
}

// Finalize is a no-op.
func (n *Nop) Finalize(_ context.Context) error {
	return nil
}
