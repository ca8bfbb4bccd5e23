package strategy

import (
	"github.com/arloliu/insitu/types"
)

// RoundRobin implements round-robin block assignment.
type RoundRobin struct{}

var _ types.BlockAssigner = (*RoundRobin)(nil)

// NewRoundRobin creates a new round-robin assigner.
//
// Block i is owned by rank i mod P. Consecutive blocks land on different
// ranks, which keeps the per-rank block count within one of every other rank.
//
// Returns:
//   - *RoundRobin: Initialized round-robin assigner
//
// Example:
//
//	assigner := strategy.NewRoundRobin()
//	owned, err := assigner.Owned(len(info.Blocks), group.Rank(), group.Size())
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Owner returns the rank owning block index.
func (rr *RoundRobin) Owner(index, worldSize int) int {
	if worldSize <= 0 {
		return 0
	}

	return index % worldSize
}

// Owned returns the block indices owned by rank.
//
// Parameters:
//   - blockCount: Total number of blocks stored for the variable
//   - rank: Rank of the caller (0-based)
//   - worldSize: Size of the reader group
//
// Returns:
//   - []int: Indices rank, rank+P, rank+2P, ... below blockCount
//   - error: types.ErrInvalidWorldSize if rank or worldSize is out of range
func (rr *RoundRobin) Owned(blockCount, rank, worldSize int) ([]int, error) {
	if err := checkRank(rank, worldSize); err != nil {
		return nil, err
	}

	owned := []int{}
	for i := rank; i < blockCount; i += worldSize {
		owned = append(owned, i)
	}

	return owned, nil
}
