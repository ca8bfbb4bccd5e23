package types

// BlockAssigner maps write-time block indices onto reader ranks.
//
// Implementations must be pure functions of (blockCount, worldSize): every rank
// evaluates the assignment independently, so no messages are exchanged to agree
// on ownership.
type BlockAssigner interface {
	// Owned returns the ordered block indices owned by rank.
	//
	// Parameters:
	//   - blockCount: Total number of blocks stored for the variable
	//   - rank: Rank of the caller (0-based)
	//   - worldSize: Size of the reader group
	//
	// Returns:
	//   - []int: Owned block indices in ascending order (empty, never nil)
	//   - error: Invalid rank or world size
	Owned(blockCount, rank, worldSize int) ([]int, error)
}
