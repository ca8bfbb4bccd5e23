package backend

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/types"
)

// FieldStats summarizes one field across the local domains of a step.
type FieldStats struct {
	Name  string
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Summary is the result of one executed step.
type Summary struct {
	Step    uint64
	Rank    int
	Domains int
	Action  string
	Fields  []FieldStats
}

// Stats computes per-field statistics of every published payload.
//
// Publish computes the statistics while the payload buffers are valid;
// Execute logs and stores them. Last returns the most recent summary.
type Stats struct {
	mu          sync.Mutex
	logger      types.Logger
	initialized bool
	pending     *Summary
	last        Summary
	executed    int
}

var _ types.Backend = (*Stats)(nil)

// NewStats creates a statistics backend.
func NewStats(logger types.Logger) *Stats {
	return &Stats{logger: logging.OrNop(logger)}
}

// Initialize prepares the backend.
func (s *Stats) Initialize(_ context.Context, _ types.ProcessGroup, _ types.BackendConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true

	return nil
}

// Publish computes the payload statistics.
func (s *Stats) Publish(_ context.Context, payload *types.MeshPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return backendError("publish", payload.Step, errors.New("stats backend not initialized"))
	}

	sum := &Summary{Step: payload.Step, Rank: payload.Rank, Domains: len(payload.Domains)}
	for _, name := range payload.FieldNames() {
		fs := FieldStats{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
		var total float64
		for i := range payload.Domains {
			f, ok := payload.Domains[i].Field(name)
			if !ok {
				continue
			}
			for _, v := range f.Values {
				fs.Min = min(fs.Min, v)
				fs.Max = max(fs.Max, v)
				total += v
			}
			fs.Count += len(f.Values)
		}
		if fs.Count > 0 {
			fs.Mean = total / float64(fs.Count)
		} else {
			fs.Min, fs.Max = 0, 0
		}
		sum.Fields = append(sum.Fields, fs)
	}
	s.pending = sum

	return nil
}

// Execute logs and stores the statistics of the published payload.
func (s *Stats) Execute(_ context.Context, action *types.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return backendError("execute", types.NoStep, errors.New("nothing published"))
	}

	sum := *s.pending
	s.pending = nil
	if action != nil {
		sum.Action = action.Name
	}
	for _, f := range sum.Fields {
		s.logger.Info("field statistics",
			"step", sum.Step, "rank", sum.Rank, "field", f.Name,
			"count", f.Count, "min", f.Min, "max", f.Max, "mean", f.Mean)
	}
	s.last = sum
	s.executed++

	return nil
}

// Finalize drops any unexecuted payload.
func (s *Stats) Finalize(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	s.initialized = false

	return nil
}

// Last returns the most recent summary.
func (s *Stats) Last() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Executed returns how many steps were executed.
func (s *Stats) Executed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.executed
}
