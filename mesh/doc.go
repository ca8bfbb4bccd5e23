// Package mesh assembles backend-agnostic mesh payloads from partitioned reads.
//
// Every domain is a uniform (image) mesh with vertex-associated fields. For an
// n-dimensional variable (n <= 3) array dimension d maps to spatial axis
// n-1-d, so row-major (z, y, x) arrays become (i, j, k) = (x, y, z) vertex
// counts; missing axes have one vertex.
//
// In block-preserving mode each owned block becomes one domain whose origin is
// shifted by
//
//	start[d]*spacing - (start[d]/count[d])*spacing
//
// per axis (integer division, no correction when count[d] is 0). For uniform
// blocks this makes neighbouring blocks share their boundary vertices; for
// non-uniform blocks the shift is inexact and kept as is for compatibility
// with existing visualizations.
//
// In repartition mode a rank contributes one domain shifted by
// start[d]*spacing, or none when its slab is empty.
package mesh
