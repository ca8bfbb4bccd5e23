package source

import (
	"context"
	"fmt"

	"github.com/arloliu/insitu/types"
)

// StepData is one step as produced by a writer.
type StepData struct {
	// Step is the simulation step number. Readers require it to strictly increase.
	Step uint64

	// Variables holds the step's variables in declaration order.
	Variables []Variable
}

// Variable is a named global array split into write-time blocks.
type Variable struct {
	Name   string
	Shape  []uint64
	Blocks []BlockData
}

// BlockData is one write-time block with its elements in row-major order.
type BlockData struct {
	Start []uint64
	Count []uint64
	Data  []float64
}

// StepWriter publishes steps to a step engine.
type StepWriter interface {
	// SetAttributes declares source-wide numeric attributes (for example
	// types.AttrOrigin and types.AttrSpacing).
	SetAttributes(ctx context.Context, attrs map[string][]float64) error

	// WriteStep publishes one complete step.
	WriteStep(ctx context.Context, step StepData) error

	// Close marks the end of the stream.
	Close(ctx context.Context) error
}

// NewVariable splits a global array into blocks.
//
// Parameters:
//   - name: Variable name
//   - shape: Global shape (row-major)
//   - data: Global array, ElementCount(shape) elements
//   - splits: Number of blocks along each dimension (see Decompose)
//
// Returns:
//   - Variable: The variable with one BlockData per block, in row-major block order
//   - error: Shape and data length mismatch
//
// Example:
//
//	// 8x8 field split 2x2 -> 4 blocks of 4x4
//	v, err := source.NewVariable("U", []uint64{8, 8}, field, []uint64{2, 2})
func NewVariable(name string, shape []uint64, data []float64, splits []uint64) (Variable, error) {
	if uint64(len(data)) != types.ElementCount(shape) {
		return Variable{}, fmt.Errorf("variable %q: %d elements for shape %v", name, len(data), shape)
	}

	infos, err := Decompose(shape, splits)
	if err != nil {
		return Variable{}, fmt.Errorf("variable %q: %w", name, err)
	}

	v := Variable{Name: name, Shape: append([]uint64(nil), shape...), Blocks: make([]BlockData, len(infos))}
	for i, info := range infos {
		v.Blocks[i] = BlockData{Start: info.Start, Count: info.Count, Data: Extract(data, shape, info)}
	}

	return v, nil
}

// Info returns the variable's reader-side metadata.
func (v Variable) Info() types.VariableInfo {
	info := types.VariableInfo{
		Name:   v.Name,
		DType:  types.DTypeFloat64,
		Shape:  append([]uint64(nil), v.Shape...),
		Blocks: make([]types.BlockInfo, len(v.Blocks)),
	}
	for i, b := range v.Blocks {
		info.Blocks[i] = types.BlockInfo{Start: append([]uint64(nil), b.Start...), Count: append([]uint64(nil), b.Count...)}
	}

	return info
}

// validate checks block geometry against the variable shape.
func (v Variable) validate() error {
	if v.Name == "" {
		return fmt.Errorf("variable has no name")
	}
	for i, b := range v.Blocks {
		if len(b.Start) != len(v.Shape) || len(b.Count) != len(v.Shape) {
			return fmt.Errorf("variable %q block %d: rank mismatch with shape %v", v.Name, i, v.Shape)
		}
		for d := range v.Shape {
			if b.Start[d]+b.Count[d] > v.Shape[d] {
				return fmt.Errorf("variable %q block %d: exceeds shape on dimension %d", v.Name, i, d)
			}
		}
		if uint64(len(b.Data)) != types.ElementCount(b.Count) {
			return fmt.Errorf("variable %q block %d: %d elements for count %v", v.Name, i, len(b.Data), b.Count)
		}
	}

	return nil
}

// validateStep checks every variable of a step.
func validateStep(step StepData) error {
	seen := make(map[string]struct{}, len(step.Variables))
	for _, v := range step.Variables {
		if err := v.validate(); err != nil {
			return err
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate variable %q", v.Name)
		}
		seen[v.Name] = struct{}{}
	}

	return nil
}
