package source

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/arloliu/insitu/types"
)

// errNoStep is returned by engine reads outside a step.
var errNoStep = errors.New("engine is not inside a step")

// MemoryStore is an in-process step store with broadcast semantics.
//
// Every reader obtained from Reader sees every step in publish order through
// its own cursor, the way readers of a staging stream do. MemoryStore is safe
// for concurrent use by one writer and any number of readers.
type MemoryStore struct {
	mu     sync.Mutex
	steps  []StepData
	attrs  map[string][]float64
	closed bool
	notify chan struct{}
}

var _ StepWriter = (*MemoryStore)(nil)

// NewMemoryStore creates an empty memory store.
//
// Returns:
//   - *MemoryStore: Store ready for writing and reading
//
// Example:
//
//	store := source.NewMemoryStore()
//	go produce(store)
//	client, err := transport.Open(ctx, transport.EngineConfig{Engine: "memory"},
//	    transport.WithEngine(store.Reader()))
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attrs:  make(map[string][]float64),
		notify: make(chan struct{}),
	}
}

// SetAttributes merges attrs into the store's attributes.
func (s *MemoryStore) SetAttributes(_ context.Context, attrs map[string][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range attrs {
		s.attrs[k] = slices.Clone(v)
	}

	return nil
}

// WriteStep appends a step and wakes waiting readers.
func (s *MemoryStore) WriteStep(_ context.Context, step StepData) error {
	if err := validateStep(step); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrClosed
	}
	s.steps = append(s.steps, step)
	s.broadcastLocked()

	return nil
}

// Close marks the end of the stream. Readers drain remaining steps first.
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		s.broadcastLocked()
	}

	return nil
}

// Reader returns a new engine positioned before the first step.
func (s *MemoryStore) Reader() types.StepEngine {
	return &memoryEngine{store: s}
}

func (s *MemoryStore) broadcastLocked() {
	close(s.notify)
	s.notify = make(chan struct{})
}

// next returns step i, or reports the end of stream, or a channel to wait on.
func (s *MemoryStore) next(i int) (*StepData, bool, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < len(s.steps) {
		return &s.steps[i], false, nil
	}
	if s.closed {
		return nil, true, nil
	}

	return nil, false, s.notify
}

func (s *MemoryStore) attributes() map[string][]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.attrs)
}

// memoryEngine is one reader cursor over a MemoryStore.
type memoryEngine struct {
	store   *MemoryStore
	cursor  int
	current *StepData
	closed  bool
}

var _ types.StepEngine = (*memoryEngine)(nil)

func (e *memoryEngine) BeginStep(ctx context.Context, timeout time.Duration) (types.StepStatus, error) {
	if e.closed {
		return types.StepEndOfStream, types.ErrClosed
	}
	if e.current != nil {
		return types.StepReady, types.ErrStepInProgress
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		step, eos, wait := e.store.next(e.cursor)
		switch {
		case step != nil:
			e.cursor++
			e.current = step

			return types.StepReady, nil
		case eos:
			return types.StepEndOfStream, nil
		}

		select {
		case <-wait:
		case <-deadline:
			return types.StepTimedOut, nil
		case <-ctx.Done():
			return types.StepTimedOut, ctx.Err()
		}
	}
}

func (e *memoryEngine) CurrentStep() uint64 {
	if e.current == nil {
		return 0
	}

	return e.current.Step
}

func (e *memoryEngine) Attributes() map[string][]float64 {
	return e.store.attributes()
}

func (e *memoryEngine) lookup(name string) (*Variable, bool) {
	if e.current == nil {
		return nil, false
	}
	for i := range e.current.Variables {
		if e.current.Variables[i].Name == name {
			return &e.current.Variables[i], true
		}
	}

	return nil, false
}

func (e *memoryEngine) InquireVariable(name string) (types.VariableInfo, bool) {
	v, ok := e.lookup(name)
	if !ok {
		return types.VariableInfo{}, false
	}

	return v.Info(), true
}

func (e *memoryEngine) ReadBlock(_ context.Context, name string, index int, dst []float64) error {
	v, ok := e.lookup(name)
	if !ok {
		return e.missing(name)
	}
	if index < 0 || index >= len(v.Blocks) {
		return fmt.Errorf("block %d of %q out of range [0, %d)", index, name, len(v.Blocks))
	}

	src := v.Blocks[index].Data
	if len(dst) != len(src) {
		return fmt.Errorf("block %d of %q has %d elements, buffer has %d", index, name, len(src), len(dst))
	}
	copy(dst, src)

	return nil
}

func (e *memoryEngine) ReadSelection(ctx context.Context, name string, start, count []uint64, dst []float64) error {
	v, ok := e.lookup(name)
	if !ok {
		return e.missing(name)
	}

	return readSelection(ctx, v.Info(), start, count, dst, func(_ context.Context, index int) ([]float64, error) {
		return v.Blocks[index].Data, nil
	})
}

func (e *memoryEngine) missing(name string) error {
	if e.current == nil {
		return errNoStep
	}

	return fmt.Errorf("variable %q not in step %d", name, e.current.Step)
}

func (e *memoryEngine) EndStep(_ context.Context) error {
	if e.current == nil {
		return errNoStep
	}
	e.current = nil

	return nil
}

func (e *memoryEngine) Close() error {
	e.closed = true
	e.current = nil

	return nil
}
