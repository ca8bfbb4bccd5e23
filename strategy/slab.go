package strategy

import (
	"fmt"

	"github.com/arloliu/insitu/types"
)

// Slab computes the balanced slab decomposition of the leading dimension.
//
// With S = globalDims[0] and P = worldSize, each rank owns slab = S/P rows and
// the first S%P ranks own one extra row:
//
//	start = rank*slab + min(rank, S%P)
//	size  = slab + (rank < S%P ? 1 : 0)
//
// All other dimensions are never split. When S < P the trailing ranks receive
// an empty slab (LocalDims[0] == 0).
//
// Parameters:
//   - globalDims: Global shape of the variable (at least one dimension)
//   - rank: Rank of the caller (0-based)
//   - worldSize: Size of the reader group
//
// Returns:
//   - types.SlabDescriptor: The rank's slab; the slices are fresh copies
//   - error: types.ErrInvalidWorldSize or types.ErrInvalidMesh for a zero-rank shape
//
// Example:
//
//	// S=10, P=3 -> starts 0,4,7 and sizes 4,3,3
//	desc, _ := strategy.Slab([]uint64{10, 8}, 1, 3)
//	// desc.LocalStart == [4 0], desc.LocalDims == [3 8]
func Slab(globalDims []uint64, rank, worldSize int) (types.SlabDescriptor, error) {
	if err := checkRank(rank, worldSize); err != nil {
		return types.SlabDescriptor{}, err
	}
	if len(globalDims) == 0 {
		return types.SlabDescriptor{}, fmt.Errorf("%w: variable has no dimensions", types.ErrInvalidMesh)
	}

	desc := types.SlabDescriptor{
		GlobalDims: append([]uint64(nil), globalDims...),
		LocalStart: make([]uint64, len(globalDims)),
		LocalDims:  append([]uint64(nil), globalDims...),
	}

	start, n := balancedRange(globalDims[0], rank, worldSize)
	desc.LocalStart[0] = start
	desc.LocalDims[0] = n

	return desc, nil
}

// balancedRange splits total items into worldSize runs and returns the run of rank.
func balancedRange(total uint64, rank, worldSize int) (start, n uint64) {
	p := uint64(worldSize)
	r := uint64(rank)
	size := total / p
	rem := total % p

	start = r*size + min(r, rem)
	n = size
	if r < rem {
		n++
	}

	return start, n
}
