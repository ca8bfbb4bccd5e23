package metrics

import (
	"os"
	"sync"
	"time"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/types"
)

// StepRecord holds the accumulated timers of one step on one rank.
type StepRecord struct {
	Step     uint64
	Rank     int
	Hostname string

	// Names lists timer names in first-use order.
	Names []string

	// Durations maps timer name to the accumulated duration within the step.
	Durations map[string]time.Duration
}

// Duration returns the accumulated duration of name (zero if unused).
func (r StepRecord) Duration(name string) time.Duration {
	return r.Durations[name]
}

// Recorder receives one StepRecord per flushed step.
type Recorder interface {
	Record(rec StepRecord) error
}

// Timers accumulates named timers within a step.
//
// Repeated Start/Stop pairs of the same name add up. Flush hands the
// accumulated record to every recorder and resets the accumulator. A Stop
// without a matching Start is ignored; timers still running at Flush are
// dropped.
type Timers struct {
	mu        sync.Mutex
	rank      int
	hostname  string
	started   map[string]time.Time
	durations map[string]time.Duration
	names     []string
	recorders []Recorder
	last      StepRecord
	logger    types.Logger
	now       func() time.Time
}

// Compile-time assertion that Timers implements MetricsSink.
var _ types.MetricsSink = (*Timers)(nil)

// NewTimers creates a timer accumulator for rank.
//
// Parameters:
//   - rank: Rank recorded in every StepRecord
//   - logger: Logger for recorder failures (nil for none)
//   - recorders: Destinations of flushed records
//
// Returns:
//   - *Timers: Empty accumulator
//
// Example:
//
//	csv, _ := metrics.NewCSVRecorder(dir, rank)
//	timers := metrics.NewTimers(rank, logger, csv, metrics.NewPrometheusRecorder(nil, "insitu"))
func NewTimers(rank int, logger types.Logger, recorders ...Recorder) *Timers {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	return &Timers{
		rank:      rank,
		hostname:  host,
		started:   make(map[string]time.Time),
		durations: make(map[string]time.Duration),
		recorders: recorders,
		logger:    logging.OrNop(logger),
		now:       time.Now,
	}
}

// Start starts the named timer.
func (t *Timers) Start(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.started[name] = t.now()
}

// Stop stops the named timer and accumulates the elapsed time.
func (t *Timers) Stop(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.started[name]
	if !ok {
		return
	}
	delete(t.started, name)

	if _, seen := t.durations[name]; !seen {
		t.names = append(t.names, name)
	}
	t.durations[name] += t.now().Sub(start)
}

// Flush records the step and resets the accumulator.
func (t *Timers) Flush(step uint64) {
	t.mu.Lock()
	rec := StepRecord{
		Step:      step,
		Rank:      t.rank,
		Hostname:  t.hostname,
		Names:     t.names,
		Durations: t.durations,
	}
	t.last = rec
	t.names = nil
	t.durations = make(map[string]time.Duration)
	clear(t.started)
	recorders := t.recorders
	t.mu.Unlock()

	for _, r := range recorders {
		if err := r.Record(rec); err != nil {
			t.logger.Warn("failed to record step timers", "step", step, "error", err)
		}
	}
}

// Last returns the most recently flushed record.
func (t *Timers) Last() StepRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last
}
