package types

import "slices"

// DTypeFloat64 is the only element type the readers transfer.
const DTypeFloat64 = "float64"

// BlockInfo describes one write-time block of a variable.
//
// A block is a contiguous rectangular sub-region of the global array with its
// own start offsets and extents. The block count of a variable is independent
// of the reader group size and may change from step to step.
type BlockInfo struct {
	// Start is the offset of the block in the global array (row-major order).
	Start []uint64 `json:"start"`

	// Count is the extent of the block in each dimension.
	Count []uint64 `json:"count"`
}

// Elements returns the number of elements covered by the block.
func (b BlockInfo) Elements() uint64 {
	return ElementCount(b.Count)
}

// VariableInfo describes a named N-dimensional array stored for a step.
type VariableInfo struct {
	// Name is the variable name as declared by the writer.
	Name string `json:"name"`

	// DType is the element type. Only DTypeFloat64 is readable.
	DType string `json:"dtype"`

	// Shape is the global shape of the array.
	Shape []uint64 `json:"shape"`

	// Blocks is the ordered block list for the current step.
	Blocks []BlockInfo `json:"blocks"`
}

// Block is a write-time block owned by this rank together with its data.
//
// The Data buffer is freshly sized to the block's extents on every step and is
// only valid until the step ends.
type Block struct {
	// Index is the block's position in the source's ordered block list.
	Index int

	// Start is the block's offset in the global array.
	Start []uint64

	// Count is the block's extent in each dimension.
	Count []uint64

	// Data holds the block's elements in row-major order.
	Data []float64
}

// SameGeometry reports whether two blocks cover the same region.
func (b Block) SameGeometry(o Block) bool {
	return b.Index == o.Index && slices.Equal(b.Start, o.Start) && slices.Equal(b.Count, o.Count)
}

// SlabDescriptor describes one rank's contiguous ownership of a variable's
// leading dimension under repartition mode.
type SlabDescriptor struct {
	GlobalDims []uint64
	LocalStart []uint64
	LocalDims  []uint64
}

// Elements returns the number of locally owned elements.
func (d SlabDescriptor) Elements() uint64 {
	return ElementCount(d.LocalDims)
}

// Empty reports whether this rank owns no elements.
func (d SlabDescriptor) Empty() bool {
	return d.Elements() == 0
}

// Equal reports whether two descriptors describe the same slab.
func (d SlabDescriptor) Equal(o SlabDescriptor) bool {
	return slices.Equal(d.GlobalDims, o.GlobalDims) &&
		slices.Equal(d.LocalStart, o.LocalStart) &&
		slices.Equal(d.LocalDims, o.LocalDims)
}

// ElementCount returns the product of dims, or 0 for an empty shape.
func ElementCount(dims []uint64) uint64 {
	if len(dims) == 0 {
		return 0
	}

	n := uint64(1)
	for _, d := range dims {
		n *= d
	}

	return n
}
