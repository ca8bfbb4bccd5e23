package strategy

import (
	"github.com/arloliu/insitu/types"
)

// Contiguous assigns each rank a run of consecutive block indices.
//
// The block list is split with the same balanced rule as Slab, so run lengths
// differ by at most one. Useful when writers emit blocks in spatial order and
// backends benefit from neighbouring blocks sharing a rank.
type Contiguous struct{}

var _ types.BlockAssigner = (*Contiguous)(nil)

// NewContiguous creates a new contiguous assigner.
func NewContiguous() *Contiguous {
	return &Contiguous{}
}

// Owned returns the consecutive block indices owned by rank.
func (c *Contiguous) Owned(blockCount, rank, worldSize int) ([]int, error) {
	if err := checkRank(rank, worldSize); err != nil {
		return nil, err
	}
	if blockCount <= 0 {
		return []int{}, nil
	}

	start, n := balancedRange(uint64(blockCount), rank, worldSize)
	owned := make([]int, 0, n)
	for i := start; i < start+n; i++ {
		owned = append(owned, int(i))
	}

	return owned, nil
}
