package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/arloliu/insitu/types"
)

// File layout:
//
//	<dir>/attributes.json         source attributes
//	<dir>/seq-000001/manifest.json step manifest, written last
//	<dir>/seq-000001/v000-b000000.bin block payloads
//	<dir>/END                      end-of-stream marker
const (
	attributesFile = "attributes.json"
	manifestFile   = "manifest.json"
	endMarker      = "END"
)

func seqDir(dir string, seq uint64) string {
	return filepath.Join(dir, fmt.Sprintf("seq-%06d", seq))
}

func blockFile(varIndex, blockIndex int) string {
	return fmt.Sprintf("v%03d-b%06d.bin", varIndex, blockIndex)
}

// writeFileAtomic writes data to a temp file and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // step data is not secret
		return err
	}

	return os.Rename(tmp, path)
}

// FileWriter persists steps into a directory readable by the file engine.
type FileWriter struct {
	dir    string
	seq    uint64
	closed bool
}

var _ StepWriter = (*FileWriter)(nil)

// NewFileWriter creates the directory and returns a writer for it.
//
// Parameters:
//   - dir: Output directory, created if missing
//
// Returns:
//   - *FileWriter: Writer positioned before the first step
//   - error: Directory creation failure
func NewFileWriter(dir string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // shared output directory
		return nil, fmt.Errorf("create step directory: %w", err)
	}

	return &FileWriter{dir: dir}, nil
}

// SetAttributes writes the attribute file.
func (w *FileWriter) SetAttributes(_ context.Context, attrs map[string][]float64) error {
	data, err := json.Marshal(attrs)
	if err != nil {
		return err
	}

	return writeFileAtomic(filepath.Join(w.dir, attributesFile), data)
}

// WriteStep writes the block payloads and then the manifest of the next step.
func (w *FileWriter) WriteStep(ctx context.Context, step StepData) error {
	if w.closed {
		return types.ErrClosed
	}
	if err := validateStep(step); err != nil {
		return err
	}

	seq := w.seq + 1
	dir := seqDir(w.dir, seq)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // shared output directory
		return fmt.Errorf("create step %d: %w", step.Step, err)
	}

	m, payloads := newManifest(seq, step)
	for i := range payloads {
		for j, payload := range payloads[i] {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(dir, blockFile(i, j)), payload, 0o644); err != nil { //nolint:gosec // step data is not secret
				return fmt.Errorf("write block %d of %q: %w", j, m.Variables[i].Name, err)
			}
		}
	}

	data, err := m.marshal()
	if err != nil {
		return err
	}
	if err := writeFileAtomic(filepath.Join(dir, manifestFile), data); err != nil {
		return fmt.Errorf("write manifest of step %d: %w", step.Step, err)
	}
	w.seq = seq

	return nil
}

// Close writes the end-of-stream marker.
func (w *FileWriter) Close(_ context.Context) error {
	if w.closed {
		return nil
	}
	w.closed = true

	return writeFileAtomic(filepath.Join(w.dir, endMarker), fmt.Appendf(nil, "%d\n", w.seq))
}

// fileEngine reads a step directory written by FileWriter.
type fileEngine struct {
	dir     string
	opts    engineOptions
	seq     uint64
	current *manifest
	closed  bool
}

var _ types.StepEngine = (*fileEngine)(nil)

// OpenFile opens a step directory.
//
// The directory may not exist yet when the reader starts before the writer;
// OpenFile polls until it appears or ctx is done. Bound the wait with a
// context deadline.
//
// Parameters:
//   - ctx: Context bounding the open
//   - dir: Step directory
//   - opts: Engine options
//
// Returns:
//   - types.StepEngine: Engine positioned before the first step
//   - error: ctx error if the directory never appeared, or a stat failure
func OpenFile(ctx context.Context, dir string, opts ...Option) (types.StepEngine, error) {
	o := applyOptions(opts)

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(dir)
		switch {
		case err == nil && info.IsDir():
			o.logger.Debug("opened step directory", "dir", dir)

			return &fileEngine{dir: dir, opts: o}, nil
		case err == nil:
			return nil, fmt.Errorf("%s is not a directory", dir)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("step directory %s did not appear: %w", dir, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (e *fileEngine) BeginStep(ctx context.Context, timeout time.Duration) (types.StepStatus, error) {
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
	ticker := time.NewTicker(e.opts.pollInterval)
	defer ticker.Stop()

	next := e.seq + 1
	path := filepath.Join(seqDir(e.dir, next), manifestFile)
	for {
		m, err := e.loadManifest(path)
		if err != nil {
			return types.StepReady, err
		}
		if m != nil {
			e.seq = next
			e.current = m
			e.opts.logger.Debug("step ready", "seq", next, "step", m.Step)

			return types.StepReady, nil
		}

		// The marker is written after the last manifest, so re-check the manifest.
		if _, err := os.Stat(filepath.Join(e.dir, endMarker)); err == nil {
			if m, err := e.loadManifest(path); err != nil || m != nil {
				continue
			}

			return types.StepEndOfStream, nil
		}

		select {
		case <-ctx.Done():
			return types.StepTimedOut, ctx.Err()
		case <-deadline:
			return types.StepTimedOut, nil
		case <-ticker.C:
		}
	}
}

// loadManifest returns nil, nil when the manifest does not exist yet.
func (e *fileEngine) loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return unmarshalManifest(data)
}

func (e *fileEngine) CurrentStep() uint64 {
	if e.current == nil {
		return 0
	}

	return e.current.Step
}

func (e *fileEngine) Attributes() map[string][]float64 {
	attrs := make(map[string][]float64)
	data, err := os.ReadFile(filepath.Join(e.dir, attributesFile))
	if err != nil {
		return attrs
	}
	if err := json.Unmarshal(data, &attrs); err != nil {
		e.opts.logger.Debug("ignoring malformed attribute file", "error", err)

		return map[string][]float64{}
	}

	return attrs
}

func (e *fileEngine) InquireVariable(name string) (types.VariableInfo, bool) {
	if e.current == nil {
		return types.VariableInfo{}, false
	}
	v, ok := e.current.lookup(name)

	return v.VariableInfo, ok
}

// variable returns the manifest entry and its index in the manifest.
func (e *fileEngine) variable(name string) (manifestVariable, int, error) {
	if e.current == nil {
		return manifestVariable{}, 0, errNoStep
	}
	for i, v := range e.current.Variables {
		if v.Name == name {
			return v, i, nil
		}
	}

	return manifestVariable{}, 0, fmt.Errorf("variable %q not in step %d", name, e.current.Step)
}

func (e *fileEngine) ReadBlock(_ context.Context, name string, index int, dst []float64) error {
	v, vi, err := e.variable(name)
	if err != nil {
		return err
	}

	return e.readBlock(v, vi, index, dst)
}

func (e *fileEngine) readBlock(v manifestVariable, vi, index int, dst []float64) error {
	b, err := blockBounds(v, index)
	if err != nil {
		return err
	}
	if uint64(len(dst)) != b.Elements() {
		return fmt.Errorf("block %d of %q has %d elements, buffer has %d", index, v.Name, b.Elements(), len(dst))
	}

	payload, err := os.ReadFile(filepath.Join(seqDir(e.dir, e.seq), blockFile(vi, index)))
	if err != nil {
		return fmt.Errorf("read block %d of %q: %w", index, v.Name, err)
	}

	return decodeBlock(v, index, payload, dst)
}

func (e *fileEngine) ReadSelection(ctx context.Context, name string, start, count []uint64, dst []float64) error {
	v, vi, err := e.variable(name)
	if err != nil {
		return err
	}

	return readSelection(ctx, v.VariableInfo, start, count, dst, func(_ context.Context, index int) ([]float64, error) {
		buf := make([]float64, v.Blocks[index].Elements())
		if err := e.readBlock(v, vi, index, buf); err != nil {
			return nil, err
		}

		return buf, nil
	})
}

func (e *fileEngine) EndStep(_ context.Context) error {
	if e.current == nil {
		return errNoStep
	}
	e.current = nil

	return nil
}

func (e *fileEngine) Close() error {
	e.closed = true
	e.current = nil

	return nil
}
