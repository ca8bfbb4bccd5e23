package strategy

import (
	"fmt"

	"github.com/arloliu/insitu/types"
)

// checkRank validates rank against worldSize.
func checkRank(rank, worldSize int) error {
	if worldSize <= 0 {
		return fmt.Errorf("%w: world size %d", types.ErrInvalidWorldSize, worldSize)
	}
	if rank < 0 || rank >= worldSize {
		return fmt.Errorf("%w: rank %d outside [0, %d)", types.ErrInvalidWorldSize, rank, worldSize)
	}

	return nil
}
