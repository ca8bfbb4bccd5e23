package partition

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/metrics"
	"github.com/arloliu/insitu/strategy"
	"github.com/arloliu/insitu/types"
)

// StepSource is the part of the transport client the readers use.
//
// *transport.Client implements it.
type StepSource interface {
	CurrentStepNumber() (uint64, error)
	Variable(name string) (types.VariableInfo, bool)
	ReadBlock(ctx context.Context, name string, index int, dst []float64) error
	ReadSelection(ctx context.Context, name string, start, count []uint64, dst []float64) error
}

// Option configures a Reader.
type Option func(*Reader)

// WithAssigner replaces the round-robin block assigner.
func WithAssigner(assigner types.BlockAssigner) Option {
	return func(r *Reader) {
		if assigner != nil {
			r.assigner = assigner
		}
	}
}

// WithMetrics sets the sink receiving read_<variable> timers.
func WithMetrics(sink types.MetricsSink) Option {
	return func(r *Reader) {
		if sink != nil {
			r.metrics = sink
		}
	}
}

// WithLogger sets the reader logger.
func WithLogger(logger types.Logger) Option {
	return func(r *Reader) {
		r.logger = logging.OrNop(logger)
	}
}

// Reader reads variables of the current step for one rank.
type Reader struct {
	src      StepSource
	rank     int
	size     int
	assigner types.BlockAssigner
	metrics  types.MetricsSink
	logger   types.Logger
}

// NewReader creates a reader for rank within a group of size ranks.
//
// Parameters:
//   - src: Step source, normally a *transport.Client
//   - rank: Rank of the caller (0-based)
//   - size: Size of the reader group
//   - opts: Reader options
//
// Returns:
//   - *Reader: Reader using round-robin block assignment unless overridden
//   - error: types.ErrInvalidWorldSize for an invalid rank or size
//
// Example:
//
//	reader, err := partition.NewReader(client, group.Rank(), group.Size(),
//	    partition.WithMetrics(timers))
func NewReader(src StepSource, rank, size int, opts ...Option) (*Reader, error) {
	if size <= 0 || rank < 0 || rank >= size {
		return nil, fmt.Errorf("%w: rank %d of %d", types.ErrInvalidWorldSize, rank, size)
	}

	r := &Reader{
		src:      src,
		rank:     rank,
		size:     size,
		assigner: strategy.NewRoundRobin(),
		metrics:  metrics.NewNop(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// ReadPreserve reads the blocks of name owned by this rank.
//
// The full ordered block list of the current step is queried and block i is
// assigned to rank i mod P. Each owned block is read with one synchronous
// transfer into a buffer sized to its extents. The block count may change
// from step to step.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Variable name
//
// Returns:
//   - []types.Block: Owned blocks in ascending index order (may be empty)
//   - int: Total block count of the variable across all ranks
//   - error: types.ErrNotInStep, or *types.OpError for a failed transfer
//
// An absent variable or a variable with zero blocks yields an empty list, 0
// and no error.
func (r *Reader) ReadPreserve(ctx context.Context, name string) ([]types.Block, int, error) {
	step, err := r.src.CurrentStepNumber()
	if err != nil {
		return nil, 0, err
	}

	info, ok := r.src.Variable(name)
	if !ok || len(info.Blocks) == 0 {
		return []types.Block{}, 0, nil
	}
	if err := checkDType(info, step); err != nil {
		return nil, 0, err
	}

	total := len(info.Blocks)
	owned, err := r.assigner.Owned(total, r.rank, r.size)
	if err != nil {
		return nil, total, err
	}

	blocks := make([]types.Block, 0, len(owned))
	timer := types.ReadTimerName(name)
	for _, idx := range owned {
		bi := info.Blocks[idx]
		block := types.Block{
			Index: idx,
			Start: append([]uint64(nil), bi.Start...),
			Count: append([]uint64(nil), bi.Count...),
			Data:  make([]float64, bi.Elements()),
		}

		r.metrics.Start(timer)
		err := r.src.ReadBlock(ctx, name, idx, block.Data)
		r.metrics.Stop(timer)
		if err != nil {
			return nil, total, transferError("read_block", name, step, err)
		}

		blocks = append(blocks, block)
	}

	r.logger.Debug("preserve read", "variable", name, "step", step, "owned", len(blocks), "total", total)

	return blocks, total, nil
}

// ReadRepartition reads this rank's slab of the leading dimension of name.
//
// The slab follows strategy.Slab. buf is resized only when the local element
// count differs from the previous call; a rank with an empty slab clears buf
// and performs no transfer.
//
// Parameters:
//   - ctx: Context for cancellation
//   - name: Variable name
//   - buf: Reusable buffer owned by the caller
//
// Returns:
//   - types.SlabDescriptor: The rank's slab (zero value for an absent variable)
//   - error: types.ErrNotInStep, or *types.OpError for a failed transfer
func (r *Reader) ReadRepartition(ctx context.Context, name string, buf *SlabBuffer) (types.SlabDescriptor, error) {
	step, err := r.src.CurrentStepNumber()
	if err != nil {
		return types.SlabDescriptor{}, err
	}

	info, ok := r.src.Variable(name)
	if !ok {
		buf.clear(types.SlabDescriptor{})
		return types.SlabDescriptor{}, nil
	}
	if err := checkDType(info, step); err != nil {
		return types.SlabDescriptor{}, err
	}

	desc, err := strategy.Slab(info.Shape, r.rank, r.size)
	if err != nil {
		return types.SlabDescriptor{}, &types.OpError{Kind: types.ErrTransfer, Op: "read_selection", Variable: name, Step: step, Err: err}
	}

	if desc.Empty() {
		buf.clear(desc)
		r.logger.Debug("empty slab", "variable", name, "step", step, "globalDims", desc.GlobalDims)

		return desc, nil
	}

	buf.resize(desc.Elements())

	timer := types.ReadTimerName(name)
	r.metrics.Start(timer)
	err = r.src.ReadSelection(ctx, name, desc.LocalStart, desc.LocalDims, buf.data)
	r.metrics.Stop(timer)
	if err != nil {
		buf.clear(types.SlabDescriptor{})
		return types.SlabDescriptor{}, transferError("read_selection", name, step, err)
	}
	buf.desc = desc
	buf.empty = false

	return desc, nil
}

func checkDType(info types.VariableInfo, step uint64) error {
	if info.DType == "" || info.DType == types.DTypeFloat64 {
		return nil
	}

	return &types.OpError{
		Kind:     types.ErrTransfer,
		Op:       "inquire",
		Variable: info.Name,
		Step:     step,
		Err:      fmt.Errorf("unsupported element type %q", info.DType),
	}
}

// transferError keeps client errors as they are and wraps anything else.
func transferError(op, name string, step uint64, err error) error {
	var opErr *types.OpError
	if errors.As(err, &opErr) || errors.Is(err, types.ErrNotInStep) {
		return err
	}

	return &types.OpError{Kind: types.ErrTransfer, Op: op, Variable: name, Step: step, Err: err}
}
