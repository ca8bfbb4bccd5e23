// Package partition reads step variables into one of two canonical
// distributions across the reader group.
//
// Block-preserving mode keeps the writer's decomposition: block i of a
// variable is read by rank i mod P, one transfer per owned block, each into a
// fresh buffer sized to the block. Repartition mode reads one balanced slab of
// the leading dimension per rank with a single selection transfer into a
// reusable SlabBuffer.
//
// Ownership is a pure function of the step metadata, the rank and the group
// size; no messages are exchanged between ranks.
package partition
