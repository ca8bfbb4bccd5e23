package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/internal/natsutil"
	"github.com/arloliu/insitu/types"
)

// EngineConfig selects and configures the engine a Client opens.
type EngineConfig struct {
	// Engine is the registered engine name (for example "file" or "jetstream").
	Engine string

	// Locator identifies the source: a directory for file engines, a
	// nats://host:port/<name> URL for jetstream.
	Locator string

	// OpenTimeout bounds Open. Zero selects the engine kind's default.
	OpenTimeout time.Duration

	// Verbose enables engine debug logging when positive.
	Verbose int

	// Params holds engine-specific settings ("pollInterval", "fetchSlice").
	Params map[string]string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	logger types.Logger
	engine types.StepEngine
	kind   EngineKind
}

// WithLogger sets the client logger.
func WithLogger(logger types.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logging.OrNop(logger)
	}
}

// WithEngine makes Open wrap engine instead of looking one up by name.
//
// Example:
//
//	store := source.NewMemoryStore()
//	client, err := transport.Open(ctx, transport.EngineConfig{}, transport.WithEngine(store.Reader()))
func WithEngine(engine types.StepEngine) Option {
	return func(o *clientOptions) {
		o.engine = engine
		o.kind = KindStream
	}
}

type clientState int

const (
	stateIdle clientState = iota
	stateInStep
	stateEnded
)

// Client is the step transport client of one reader rank.
//
// A Client is used by a single goroutine; only Close may be called
// concurrently with other methods.
type Client struct {
	engine types.StepEngine
	kind   EngineKind
	name   string
	logger types.Logger

	state    clientState
	step     uint64
	lastStep uint64
	seen     bool

	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

// Open attaches to a source.
//
// File engines are bounded by cfg.OpenTimeout or DefaultFileOpenTimeout;
// stream engines wait until ctx is done unless cfg.OpenTimeout is set.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Engine selection and settings
//   - opts: Client options
//
// Returns:
//   - *Client: Client in the idle state
//   - error: *types.OpError of kind types.ErrConnection
//
// Example:
//
//	client, err := transport.Open(ctx, transport.EngineConfig{Engine: "file", Locator: "/data/heat"})
//	if errors.Is(err, insitu.ErrConnection) { /* source unreachable */ }
//	defer client.Close()
func Open(ctx context.Context, cfg EngineConfig, opts ...Option) (*Client, error) {
	o := clientOptions{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{logger: o.logger, closed: make(chan struct{})}

	if o.engine != nil {
		c.engine = o.engine
		c.kind = o.kind
		c.name = "custom"

		return c, nil
	}

	entry, err := lookupEngine(cfg.Engine)
	if err != nil {
		return nil, types.NewOpError(types.ErrConnection, "open", err)
	}
	c.kind = entry.kind
	c.name = entry.name

	timeout := cfg.OpenTimeout
	if timeout <= 0 && entry.kind == KindFile {
		timeout = DefaultFileOpenTimeout
	}

	octx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		octx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	engine, err := entry.open(octx, cfg, c.logger)
	if err != nil {
		c.logger.Debug("open failed", "engine", entry.name, "locator", cfg.Locator, "error", err)

		return nil, types.NewOpError(types.ErrConnection, "open", err)
	}
	c.engine = engine
	c.logger.Debug("source opened", "engine", entry.name, "kind", entry.kind, "locator", cfg.Locator,
		"elapsed", time.Since(start))

	return c, nil
}

// Kind returns the engine kind.
func (c *Client) Kind() EngineKind {
	return c.kind
}

// EngineName returns the registry name of the engine.
func (c *Client) EngineName() string {
	return c.name
}

// BeginStep waits for the next step.
//
// Parameters:
//   - ctx: Context for cancellation
//   - policy: Wait policy; only types.WaitTimeout can produce StepTimedOut
//
// Returns:
//   - types.StepContext: Ready with the step number, EndOfStream (sticky) or TimedOut
//   - error: types.ErrStepInProgress, types.ErrClosed, a ctx error, or *types.OpError
func (c *Client) BeginStep(ctx context.Context, policy types.WaitPolicy) (types.StepContext, error) {
	if c.isClosed() {
		return types.StepContext{}, types.ErrClosed
	}
	switch c.state {
	case stateInStep:
		return types.StepContext{}, types.ErrStepInProgress
	case stateEnded:
		return types.StepContext{Status: types.StepEndOfStream}, nil
	}

	for {
		status, err := c.engine.BeginStep(ctx, policy.Bound())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return types.StepContext{}, fmt.Errorf("begin step: %w", ctxErr)
			}

			return types.StepContext{}, c.wrap("begin_step", "", types.NoStep, err)
		}

		switch status {
		case types.StepEndOfStream:
			c.state = stateEnded
			return types.StepContext{Status: types.StepEndOfStream}, nil

		case types.StepTimedOut:
			if policy.Mode != types.WaitTimeout {
				continue
			}
			return types.StepContext{Status: types.StepTimedOut}, nil
		}

		step := c.engine.CurrentStep()
		if c.seen && step <= c.lastStep {
			_ = c.engine.EndStep(ctx)
			return types.StepContext{}, &types.OpError{
				Kind: types.ErrTransfer,
				Op:   "begin_step",
				Step: step,
				Err:  fmt.Errorf("step number %d does not follow %d", step, c.lastStep),
			}
		}

		c.state = stateInStep
		c.step = step
		c.lastStep = step
		c.seen = true

		return types.StepContext{Step: step, Status: types.StepReady}, nil
	}
}

// CurrentStepNumber returns the current step number.
//
// Returns:
//   - uint64: Step number of the Ready step
//   - error: types.ErrNotInStep outside a Ready step
func (c *Client) CurrentStepNumber() (uint64, error) {
	if c.state != stateInStep {
		return 0, types.ErrNotInStep
	}

	return c.step, nil
}

// EndStep releases the current step. Buffers referencing step data are
// invalid afterwards.
func (c *Client) EndStep(ctx context.Context) error {
	if c.state != stateInStep {
		return types.ErrNotInStep
	}
	c.state = stateIdle

	if err := c.engine.EndStep(ctx); err != nil {
		return c.wrap("end_step", "", c.step, err)
	}

	return nil
}

// Attributes returns the source-declared attributes.
func (c *Client) Attributes() map[string][]float64 {
	if c.isClosed() {
		return map[string][]float64{}
	}

	return c.engine.Attributes()
}

// Variable returns the metadata of a variable in the current step.
//
// Returns false when the variable is absent or no step is in progress.
func (c *Client) Variable(name string) (types.VariableInfo, bool) {
	if c.state != stateInStep {
		return types.VariableInfo{}, false
	}

	return c.engine.InquireVariable(name)
}

// ReadBlock transfers one write-time block of the current step into dst.
func (c *Client) ReadBlock(ctx context.Context, name string, index int, dst []float64) error {
	if c.state != stateInStep {
		return types.ErrNotInStep
	}
	if err := c.engine.ReadBlock(ctx, name, index, dst); err != nil {
		return c.wrap("read_block", name, c.step, err)
	}

	return nil
}

// ReadSelection transfers the box (start, count) of the current step into dst.
func (c *Client) ReadSelection(ctx context.Context, name string, start, count []uint64, dst []float64) error {
	if c.state != stateInStep {
		return types.ErrNotInStep
	}
	if err := c.engine.ReadSelection(ctx, name, start, count, dst); err != nil {
		return c.wrap("read_selection", name, c.step, err)
	}

	return nil
}

// Close releases the engine. Close is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.engine != nil {
			c.closeErr = c.engine.Close()
		}
	})

	return c.closeErr
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// wrap classifies an engine error.
func (c *Client) wrap(op, variable string, step uint64, err error) error {
	var opErr *types.OpError
	if errors.As(err, &opErr) {
		return err
	}

	kind := types.ErrTransfer
	if natsutil.IsConnectivityError(err) {
		kind = types.ErrConnection
	}

	return &types.OpError{Kind: kind, Op: op, Variable: variable, Step: step, Err: err}
}
