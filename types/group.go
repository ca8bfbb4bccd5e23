package types

import "context"

// ProcessGroup is the fixed-size group of cooperating reader processes.
//
// Partition math only needs Rank and Size. Abort is the single collective
// operation: it terminates every member so that survivors never wait on a
// peer that already failed.
type ProcessGroup interface {
	// Rank returns the caller's rank (0-based).
	Rank() int

	// Size returns the group size.
	Size() int

	// Abort terminates the whole group with the given cause.
	Abort(ctx context.Context, cause error) error

	// Done is closed once the group was aborted by any member.
	Done() <-chan struct{}

	// Err returns the abort cause after Done is closed, nil before.
	Err() error
}
