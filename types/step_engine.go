package types

import (
	"context"
	"time"
)

// Attribute names a source may declare to describe its mesh geometry.
const (
	AttrOrigin  = "mesh.origin"
	AttrSpacing = "mesh.spacing"
)

// StepEngine is a step-oriented read engine.
//
// An engine exposes an ordered sequence of steps. Between a successful
// BeginStep and the matching EndStep the variables of the current step can be
// inquired and read. Engines are used by a single goroutine.
type StepEngine interface {
	// BeginStep waits for the next step.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - timeout: Wait bound; zero or negative waits without bound
	//
	// Returns:
	//   - StepStatus: StepReady, StepEndOfStream or StepTimedOut
	//   - error: Engine failure (status is then undefined)
	BeginStep(ctx context.Context, timeout time.Duration) (StepStatus, error)

	// CurrentStep returns the step number of the current step.
	CurrentStep() uint64

	// Attributes returns source-declared numeric attributes.
	Attributes() map[string][]float64

	// InquireVariable returns the metadata of a variable in the current step.
	InquireVariable(name string) (VariableInfo, bool)

	// ReadBlock transfers one write-time block into dst.
	//
	// dst must have exactly the block's element count.
	ReadBlock(ctx context.Context, name string, index int, dst []float64) error

	// ReadSelection transfers the box (start, count) of the global array into
	// dst in row-major order. dst must have exactly the box's element count.
	ReadSelection(ctx context.Context, name string, start, count []uint64, dst []float64) error

	// EndStep releases the current step.
	EndStep(ctx context.Context) error

	// Close releases engine resources.
	Close() error
}
