package insitu

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/insitu/backend"
	"github.com/arloliu/insitu/group"
	"github.com/arloliu/insitu/internal/hooks"
	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/internal/natsutil"
	"github.com/arloliu/insitu/mesh"
	"github.com/arloliu/insitu/metrics"
	"github.com/arloliu/insitu/partition"
	"github.com/arloliu/insitu/transport"
	"github.com/arloliu/insitu/types"
)

// shutdownTimeout bounds the abort broadcast and backend finalize on the exit path.
const shutdownTimeout = 5 * time.Second

// Runner is the orchestration loop of one reader rank.
//
// A Runner attaches to a step source, reads the configured variables every
// step in the configured partition mode, assembles a mesh payload and hands
// it to the backend. It runs on a single goroutine; parallelism comes from
// running one Runner per rank.
type Runner struct {
	cfg       Config
	runID     string
	logger    Logger
	hooks     Hooks
	metrics   MetricsSink
	closers   []func() error
	group     ProcessGroup
	backend   Backend
	engine    StepEngine
	assigner  BlockAssigner
	overrides Overrides

	state   atomic.Int32
	started atomic.Bool

	// per-run state, touched only by the Run goroutine
	client     *transport.Client
	reader     *partition.Reader
	builder    *mesh.Builder
	primaryBuf *partition.SlabBuffer
	secondBuf  *partition.SlabBuffer
	backendUp  bool
	warnedIdle bool
}

// NewRunner creates a Runner.
//
// The configuration is completed with SetDefaults, validated and then frozen;
// source attributes and Overrides only affect the mesh geometry, which is
// resolved once on the first step.
//
// Parameters:
//   - cfg: Runner configuration
//   - opts: Optional dependencies (WithLogger, WithHooks, WithGroup, ...)
//
// Returns:
//   - *Runner: Runner ready for Run
//   - error: ErrInvalidConfig, ErrUnknownBackend or a metrics setup failure
//
// Example:
//
//	cfg, err := insitu.LoadConfig("reader.yaml")
//	if err != nil {
//	    return err
//	}
//	runner, err := insitu.NewRunner(cfg, insitu.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	summary, err := runner.Run(ctx)
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	var o runnerOptions
	for _, opt := range opts {
		opt(&o)
	}

	SetDefaults(&cfg)
	if o.group != nil {
		cfg.Group.Rank, cfg.Group.Size = o.group.Rank(), o.group.Size()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.engine == nil && cfg.Source.Locator == "" {
		return nil, fmt.Errorf("%w: source.locator is required", ErrInvalidConfig)
	}

	r := &Runner{
		cfg:       cfg,
		runID:     uuid.NewString(),
		hooks:     hooks.Fill(o.hooks),
		group:     o.group,
		backend:   o.backend,
		engine:    o.engine,
		assigner:  o.assigner,
		overrides: o.overrides,
	}

	r.logger = o.logger
	if r.logger == nil {
		r.logger = logging.NewSlogVerbosity(os.Stderr, cfg.Verbosity)
	}
	r.logger = logging.WithFields(r.logger, "rank", cfg.Group.Rank)
	cfg.ValidateWithWarnings(r.logger)

	if r.backend == nil {
		b, err := backend.New(cfg.Backend.Name, backend.Deps{Logger: r.logger})
		if err != nil {
			return nil, err
		}
		r.backend = b
	}

	r.metrics = o.metrics
	if r.metrics == nil {
		sink, err := r.defaultMetrics(o.registerer)
		if err != nil {
			return nil, err
		}
		r.metrics = sink
	}

	return r, nil
}

// defaultMetrics builds step timers with the recorders Config.Metrics enables.
func (r *Runner) defaultMetrics(reg prometheus.Registerer) (MetricsSink, error) {
	var recorders []metrics.Recorder
	if r.cfg.Metrics.CSVDir != "" {
		csv, err := metrics.NewCSVRecorder(r.cfg.Metrics.CSVDir, r.cfg.Group.Rank, r.timerColumns()...)
		if err != nil {
			return nil, fmt.Errorf("%w: metrics.csvDir: %w", ErrInvalidConfig, err)
		}
		recorders = append(recorders, csv)
		r.closers = append(r.closers, csv.Close)
	}
	if r.cfg.Metrics.Namespace != "" {
		recorders = append(recorders, metrics.NewPrometheusRecorder(reg, r.cfg.Metrics.Namespace))
	}

	return metrics.NewTimers(r.cfg.Group.Rank, r.logger, recorders...), nil
}

// timerColumns lists every timer the loop can record, in loop order.
func (r *Runner) timerColumns() []string {
	cols := []string{types.TimerTransportWait, types.ReadTimerName(r.cfg.Variables.Primary)}
	if sec := r.cfg.Variables.Secondary; sec != "" && sec != r.cfg.Variables.Primary {
		cols = append(cols, types.ReadTimerName(sec))
	}

	return append(cols,
		types.TimerMeshAssembly,
		types.TimerDataTransfer,
		types.TimerBackendExecute,
		types.TimerTotalStep,
	)
}

// RunID returns the identifier handed to the backend for this run.
func (r *Runner) RunID() string {
	return r.runID
}

// Config returns the frozen configuration.
func (r *Runner) Config() Config {
	return r.cfg
}

// State returns the current loop state.
func (r *Runner) State() LoopState {
	return LoopState(r.state.Load())
}

// Run executes the loop until the source ends, a wait times out, a peer
// aborts the group or a fatal error occurs.
//
// End of stream and timeout are clean shutdowns: the backend is finalized and
// Run returns a nil error. On a fatal error the group is aborted so that
// peers terminate, the backend is finalized best-effort and the error is
// returned.
//
// Parameters:
//   - ctx: Context for cancellation; cancelling it ends the run as a failure
//
// Returns:
//   - RunSummary: Processed steps and stop reason
//   - error: Fatal error, the group abort cause, or nil
func (r *Runner) Run(ctx context.Context) (RunSummary, error) {
	if !r.started.CompareAndSwap(false, true) {
		return RunSummary{Reason: StopFailed, err: ErrAlreadyRunning}, ErrAlreadyRunning
	}
	defer r.closeAll()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var summary RunSummary

	if err := r.joinGroup(); err != nil {
		return r.fail(ctx, &summary, types.NewOpError(ErrConnection, "join_group", err))
	}

	go func() {
		select {
		case <-r.group.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := r.open(ctx); err != nil {
		return r.fail(ctx, &summary, err)
	}

	policy := r.cfg.Wait.Policy()
	for {
		sc, err := r.waitStep(ctx, policy)
		if err != nil {
			return r.fail(ctx, &summary, err)
		}

		switch sc.Status {
		case StepEndOfStream:
			summary.Reason = StopEndOfStream
			return summary, r.finish(ctx, &summary)
		case StepTimedOut:
			summary.Reason = StopTimedOut
			return summary, r.finish(ctx, &summary)
		}

		if err := r.processStep(ctx, sc.Step); err != nil {
			return r.fail(ctx, &summary, err)
		}

		summary.Steps++
		summary.LastStep = sc.Step
	}
}

// joinGroup uses the configured group, a NATS group when Config.Group.URL is
// set, or a static group.
func (r *Runner) joinGroup() error {
	if r.group != nil {
		return nil
	}

	if r.cfg.Group.URL == "" {
		r.group = group.NewStatic(r.cfg.Group.Rank, r.cfg.Group.Size)
		return nil
	}

	nc, err := natsutil.Connect(r.cfg.Group.URL, fmt.Sprintf("insitu-group-%d", r.cfg.Group.Rank), 0)
	if err != nil {
		r.group = group.NewStatic(r.cfg.Group.Rank, r.cfg.Group.Size)
		return err
	}

	g, err := group.NewNATS(nc, r.cfg.Group.Subject, r.cfg.Group.Rank, r.cfg.Group.Size, r.logger)
	if err != nil {
		nc.Close()
		r.group = group.NewStatic(r.cfg.Group.Rank, r.cfg.Group.Size)

		return err
	}

	r.group = g
	r.closers = append(r.closers, g.Leave, func() error { return closeConn(nc) })

	return nil
}

func closeConn(nc *nats.Conn) error {
	nc.Close()
	return nil
}

// open attaches to the source and initializes the backend.
func (r *Runner) open(ctx context.Context) error {
	engineCfg := transport.EngineConfig{
		Engine:      r.cfg.Source.Engine,
		Locator:     r.cfg.Source.Locator,
		OpenTimeout: r.cfg.Source.OpenTimeout,
		Verbose:     r.cfg.Source.Verbose,
		Params:      r.cfg.Source.Params,
	}
	copts := []transport.Option{transport.WithLogger(r.logger)}
	if r.engine != nil {
		copts = append(copts, transport.WithEngine(r.engine))
	}

	client, err := transport.Open(ctx, engineCfg, copts...)
	if err != nil {
		return err
	}
	r.client = client
	r.closers = append(r.closers, client.Close)

	ropts := []partition.Option{partition.WithMetrics(r.metrics), partition.WithLogger(r.logger)}
	if r.assigner != nil {
		ropts = append(ropts, partition.WithAssigner(r.assigner))
	}
	r.reader, err = partition.NewReader(client, r.group.Rank(), r.group.Size(), ropts...)
	if err != nil {
		return err
	}
	r.primaryBuf = partition.NewSlabBuffer()
	r.secondBuf = partition.NewSlabBuffer()

	bcfg := types.BackendConfig{Name: r.cfg.Backend.Name, RunID: r.runID, Options: r.cfg.Backend.Options}
	if err := r.backend.Initialize(ctx, r.group, bcfg); err != nil {
		return backendError("initialize", types.NoStep, err)
	}
	r.backendUp = true

	r.logger.Info("reader started",
		"engine", client.EngineName(),
		"locator", r.cfg.Source.Locator,
		"mode", r.cfg.PartitionMode,
		"wait", r.cfg.Wait.Mode,
		"size", r.group.Size(),
		"backend", r.cfg.Backend.Name,
		"run_id", r.runID,
	)

	return nil
}

// waitStep waits for the next step in the idle state.
func (r *Runner) waitStep(ctx context.Context, policy types.WaitPolicy) (types.StepContext, error) {
	r.transition(ctx, LoopIdle)

	r.metrics.Start(types.TimerTotalStep)
	r.metrics.Start(types.TimerTransportWait)
	sc, err := r.client.BeginStep(ctx, policy)
	r.metrics.Stop(types.TimerTransportWait)

	return sc, err
}

// finish is the clean shutdown path.
func (r *Runner) finish(ctx context.Context, summary *RunSummary) error {
	r.logger.Info("reader finished", "reason", summary.Reason, "steps", summary.Steps)

	r.metrics.Stop(types.TimerTotalStep)
	r.metrics.Flush(types.NoStep)

	err := r.finalize(ctx)
	r.transition(ctx, LoopTerminated)

	return err
}

// fail is the fatal exit path: one error log, group abort unless a peer
// already aborted, best-effort finalize.
func (r *Runner) fail(ctx context.Context, summary *RunSummary, err error) (RunSummary, error) {
	if r.group != nil {
		select {
		case <-r.group.Done():
			cause := r.group.Err()
			r.logger.Warn("run aborted", "steps", summary.Steps, "cause", cause)
			summary.Reason = StopAborted
			summary.err = cause
			if ferr := r.finalize(ctx); ferr != nil {
				r.logger.Warn("backend finalize failed", "error", ferr)
			}
			r.transition(ctx, LoopTerminated)

			return *summary, cause
		default:
		}
	}

	kv := []any{"error", err, "steps", summary.Steps}
	var opErr *types.OpError
	if errors.As(err, &opErr) {
		kv = append(kv, "op", opErr.Op)
		if opErr.Variable != "" {
			kv = append(kv, "variable", opErr.Variable)
		}
		if opErr.Step != types.NoStep {
			kv = append(kv, "step", opErr.Step)
		}
	}
	r.logger.Error("run failed", kv...)

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if r.group != nil {
		if aerr := r.group.Abort(sctx, err); aerr != nil {
			r.logger.Warn("group abort failed", "error", aerr)
		}
	}
	if ferr := r.finalize(sctx); ferr != nil {
		r.logger.Warn("backend finalize failed", "error", ferr)
	}
	r.transition(ctx, LoopTerminated)

	summary.Reason = StopFailed
	summary.err = err

	return *summary, err
}

// finalize finalizes the backend once.
func (r *Runner) finalize(ctx context.Context) error {
	if !r.backendUp {
		return nil
	}
	r.backendUp = false

	if err := r.backend.Finalize(context.WithoutCancel(ctx)); err != nil {
		return backendError("finalize", types.NoStep, err)
	}

	return nil
}

func (r *Runner) closeAll() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			r.logger.Debug("close failed", "error", err)
		}
	}
	r.closers = nil
}

// validTransitions lists the allowed loop state transitions.
var validTransitions = map[LoopState][]LoopState{
	LoopIdle:       {LoopStepReady, LoopTerminated},
	LoopStepReady:  {LoopPublishing, LoopTerminated},
	LoopPublishing: {LoopDraining, LoopTerminated},
	LoopDraining:   {LoopIdle, LoopTerminated},
	LoopTerminated: {},
}

// transition moves the loop to state and fires OnStateChanged.
func (r *Runner) transition(ctx context.Context, to LoopState) {
	from := r.State()
	if from == to {
		return
	}
	valid := false
	for _, s := range validTransitions[from] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		r.logger.Error("invalid state transition attempted", "from", from.String(), "to", to.String())
		return
	}

	r.state.Store(int32(to)) //nolint:gosec // LoopState values are a small enum
	r.logger.Debug("state transition", "from", from.String(), "to", to.String())

	if err := r.hooks.OnStateChanged(ctx, from, to); err != nil {
		r.logger.Warn("state change hook error", "from", from, "to", to, "error", err)
	}
}

func backendError(op string, step uint64, err error) error {
	if errors.Is(err, ErrBackend) {
		return err
	}

	return &types.OpError{Kind: ErrBackend, Op: op, Step: step, Err: err}
}
