// Package group implements the reader process group.
//
// Static is a fixed rank/size pair for single-process runs and tests. NATS
// adds an abort broadcast over a NATS subject so that one failing rank
// terminates every peer instead of leaving them blocked on the transport.
package group
