package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/arloliu/insitu/types"
)

// CSVRecorder appends one row per flushed step to perf_rank<rank>.csv.
//
// The header is step, rank, hostname followed by the declared timer columns
// and any other timer names of the first record, in seconds. Timers outside
// the header are dropped and missing timers are written as 0. The trailing
// wait recorded under types.NoStep is written with step "end".
type CSVRecorder struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	w        *csv.Writer
	declared []string
	columns  []string
}

var _ Recorder = (*CSVRecorder)(nil)

// NewCSVRecorder creates the per-rank CSV file in dir.
//
// Parameters:
//   - dir: Output directory, created if missing
//   - rank: Rank used in the file name
//   - columns: Timer names always present in the header, in order
//
// Returns:
//   - *CSVRecorder: Recorder writing to <dir>/perf_rank<rank>.csv
//   - error: File creation failure
func NewCSVRecorder(dir string, rank int, columns ...string) (*CSVRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // shared metrics directory
		return nil, fmt.Errorf("create metrics directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("perf_rank%d.csv", rank))
	f, err := os.Create(path) //nolint:gosec // path built from configured directory
	if err != nil {
		return nil, fmt.Errorf("create metrics file: %w", err)
	}

	return &CSVRecorder{path: path, file: f, w: csv.NewWriter(f), declared: slices.Clone(columns)}, nil
}

// Path returns the CSV file path.
func (c *CSVRecorder) Path() string {
	return c.path
}

// Record writes one row.
func (c *CSVRecorder) Record(rec StepRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return os.ErrClosed
	}

	if c.columns == nil {
		c.columns = append([]string{}, c.declared...)
		for _, name := range rec.Names {
			if !slices.Contains(c.columns, name) {
				c.columns = append(c.columns, name)
			}
		}
		header := append([]string{"step", "rank", "hostname"}, c.columns...)
		if err := c.w.Write(header); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(c.columns)+3)
	step := "end"
	if rec.Step != types.NoStep {
		step = strconv.FormatUint(rec.Step, 10)
	}
	row = append(row, step, strconv.Itoa(rec.Rank), rec.Hostname)
	for _, name := range c.columns {
		row = append(row, strconv.FormatFloat(rec.Durations[name].Seconds(), 'f', 6, 64))
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()

	return c.w.Error()
}

// Close flushes and closes the file.
func (c *CSVRecorder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil
	}
	c.w.Flush()
	err := c.file.Close()
	c.file = nil

	return err
}
