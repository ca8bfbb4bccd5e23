// Package strategy provides the partition math shared by every reader rank.
//
// All functions are pure: each rank evaluates them independently from the
// variable metadata, its own rank and the group size, so no messages are
// exchanged to agree on ownership.
//
// The package includes two block assigners for block-preserving reads:
//
//   - RoundRobin: block i is owned by rank i mod P (default)
//   - Contiguous: ranks own runs of consecutive block indices
//
// and the balanced slab decomposition used by repartitioned reads:
//
//   - Slab: splits the leading dimension into P contiguous slabs whose sizes
//     differ by at most one
//
// Custom assigners can be implemented by satisfying the types.BlockAssigner interface.
package strategy
