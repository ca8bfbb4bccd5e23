package testing

import (
	"context"
	"slices"
	"sync"

	"github.com/arloliu/insitu/types"
)

// RecordingBackend is a Backend that records calls and keeps deep copies of
// every published payload.
//
// Set the *Err fields before a run to inject failures.
type RecordingBackend struct {
	mu sync.Mutex

	// InitializeErr, PublishErr, ExecuteErr and FinalizeErr are returned by
	// the corresponding methods when non-nil.
	InitializeErr error
	PublishErr    error
	ExecuteErr    error
	FinalizeErr   error

	calls    []string
	payloads []types.MeshPayload
	actions  []*types.Action
	config   types.BackendConfig
	rank     int
}

var _ types.Backend = (*RecordingBackend)(nil)

// NewRecordingBackend creates a recording backend.
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{}
}

// Initialize records the call and the configuration.
func (b *RecordingBackend) Initialize(_ context.Context, group types.ProcessGroup, cfg types.BackendConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "initialize")
	b.config = cfg
	b.rank = group.Rank()

	return b.InitializeErr
}

// Publish records a deep copy of payload.
func (b *RecordingBackend) Publish(_ context.Context, payload *types.MeshPayload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "publish")
	if b.PublishErr != nil {
		return b.PublishErr
	}
	b.payloads = append(b.payloads, clonePayload(payload))

	return nil
}

// Execute records the action.
func (b *RecordingBackend) Execute(_ context.Context, action *types.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "execute")
	b.actions = append(b.actions, action)

	return b.ExecuteErr
}

// Finalize records the call.
func (b *RecordingBackend) Finalize(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, "finalize")

	return b.FinalizeErr
}

// Calls returns the method names called so far, in order.
func (b *RecordingBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.calls)
}

// Payloads returns copies of all published payloads.
func (b *RecordingBackend) Payloads() []types.MeshPayload {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.payloads)
}

// Actions returns the actions passed to Execute.
func (b *RecordingBackend) Actions() []*types.Action {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.actions)
}

// Config returns the configuration passed to Initialize.
func (b *RecordingBackend) Config() types.BackendConfig {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.config
}

func clonePayload(p *types.MeshPayload) types.MeshPayload {
	out := types.MeshPayload{Step: p.Step, Rank: p.Rank, Domains: make([]types.Domain, len(p.Domains))}
	for i, d := range p.Domains {
		out.Domains[i] = types.Domain{ID: d.ID, Coords: d.Coords, Fields: make([]types.Field, len(d.Fields))}
		for j, f := range d.Fields {
			out.Domains[i].Fields[j] = types.Field{
				Name:        f.Name,
				Association: f.Association,
				Values:      slices.Clone(f.Values),
			}
		}
	}

	return out
}
