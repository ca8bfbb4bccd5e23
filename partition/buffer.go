package partition

import "github.com/arloliu/insitu/types"

// SlabBuffer is the reusable destination of repartitioned reads.
//
// The data slice is reallocated only when the local element count grows past
// its capacity; shrinking reuses the backing array. Data is only valid until
// the step ends.
type SlabBuffer struct {
	data    []float64
	desc    types.SlabDescriptor
	empty   bool
	resizes int
}

// NewSlabBuffer creates an empty buffer.
func NewSlabBuffer() *SlabBuffer {
	return &SlabBuffer{empty: true}
}

// Data returns the slab elements in row-major order.
func (b *SlabBuffer) Data() []float64 {
	return b.data
}

// Descriptor returns the descriptor of the last read.
func (b *SlabBuffer) Descriptor() types.SlabDescriptor {
	return b.desc
}

// Empty reports whether the buffer holds no elements.
func (b *SlabBuffer) Empty() bool {
	return b.empty
}

// Resizes returns how often the element count changed.
func (b *SlabBuffer) Resizes() int {
	return b.resizes
}

func (b *SlabBuffer) resize(n uint64) {
	if uint64(len(b.data)) == n {
		return
	}
	b.resizes++
	if uint64(cap(b.data)) >= n {
		b.data = b.data[:n]
		return
	}
	b.data = make([]float64, n)
}

func (b *SlabBuffer) clear(desc types.SlabDescriptor) {
	if len(b.data) != 0 {
		b.resizes++
	}
	b.data = b.data[:0]
	b.desc = desc
	b.empty = true
}
