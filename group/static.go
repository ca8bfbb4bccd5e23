package group

import (
	"context"
	"fmt"
	"sync"

	"github.com/arloliu/insitu/types"
)

// Static is a process group with a fixed rank and size and no peers to notify.
type Static struct {
	rank int
	size int

	once sync.Once
	done chan struct{}
	mu   sync.Mutex
	err  error
}

var _ types.ProcessGroup = (*Static)(nil)

// NewStatic creates a static group.
//
// Parameters:
//   - rank: Caller's rank in [0, size)
//   - size: Group size
//
// Returns:
//   - *Static: Group whose Abort only affects the caller
func NewStatic(rank, size int) *Static {
	return &Static{rank: rank, size: size, done: make(chan struct{})}
}

// Rank returns the caller's rank.
func (g *Static) Rank() int { return g.rank }

// Size returns the group size.
func (g *Static) Size() int { return g.size }

// Abort marks the group aborted with cause.
func (g *Static) Abort(_ context.Context, cause error) error {
	g.terminate(abortError(g.rank, cause))
	return nil
}

// Done is closed once the group was aborted.
func (g *Static) Done() <-chan struct{} { return g.done }

// Err returns the abort cause, nil before Done is closed.
func (g *Static) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.err
}

func abortError(rank int, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w by rank %d", types.ErrAborted, rank)
	}

	return fmt.Errorf("%w by rank %d: %w", types.ErrAborted, rank, cause)
}

func (g *Static) terminate(err error) {
	g.once.Do(func() {
		g.mu.Lock()
		g.err = err
		g.mu.Unlock()
		close(g.done)
	})
}
