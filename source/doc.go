// Package source provides built-in step engines and their writers.
//
// A step engine exposes an ordered sequence of steps, each holding named
// N-dimensional float64 variables stored as write-time blocks. The package
// includes:
//
//   - Memory: in-process broadcast store, one independent cursor per reader
//   - File: persisted step directory written by FileWriter
//   - JetStream: live stream over NATS JetStream written by JetStreamWriter
//
// All engines share the same step manifest: the step number, an optional
// end-of-stream marker and, per variable, the global shape, the ordered block
// list and an xxh3 checksum per block. Writers publish block data first and
// the manifest last, so a visible manifest always refers to complete data.
//
// Custom engines can be implemented by satisfying the types.StepEngine interface.
package source
