package source

import (
	"fmt"

	"github.com/arloliu/insitu/types"
)

// Decompose splits a global shape into a grid of blocks.
//
// Dimension d is cut into splits[d] pieces of shape[d]/splits[d] elements; the
// last piece absorbs the remainder, so blocks are non-uniform whenever the
// split does not divide the shape. A split larger than the extent is clamped
// so that no block is empty. Blocks are returned in row-major grid order.
//
// Parameters:
//   - shape: Global shape
//   - splits: Pieces per dimension (len(shape) entries, zero treated as one)
//
// Returns:
//   - []types.BlockInfo: Block geometry covering the shape exactly once
//   - error: Rank mismatch between shape and splits
func Decompose(shape, splits []uint64) ([]types.BlockInfo, error) {
	if len(splits) != len(shape) {
		return nil, fmt.Errorf("splits %v do not match shape %v", splits, shape)
	}
	if types.ElementCount(shape) == 0 {
		return []types.BlockInfo{}, nil
	}

	n := len(shape)
	starts := make([][]uint64, n)
	counts := make([][]uint64, n)
	total := 1
	for d := range n {
		p := max(splits[d], 1)
		p = min(p, shape[d])
		size := shape[d] / p
		for i := range p {
			starts[d] = append(starts[d], i*size)
			c := size
			if i == p-1 {
				c = shape[d] - i*size
			}
			counts[d] = append(counts[d], c)
		}
		total *= int(p)
	}

	blocks := make([]types.BlockInfo, 0, total)
	idx := make([]int, n)
	for range total {
		b := types.BlockInfo{Start: make([]uint64, n), Count: make([]uint64, n)}
		for d := range n {
			b.Start[d] = starts[d][idx[d]]
			b.Count[d] = counts[d][idx[d]]
		}
		blocks = append(blocks, b)

		for d := n - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < len(starts[d]) {
				break
			}
			idx[d] = 0
		}
	}

	return blocks, nil
}

// Extract copies the region of block b out of a global row-major array.
func Extract(data []float64, shape []uint64, b types.BlockInfo) []float64 {
	out := make([]float64, b.Elements())
	copyOverlap(out, b.Start, b.Count, data, make([]uint64, len(shape)), shape)

	return out
}
