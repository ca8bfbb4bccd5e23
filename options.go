package insitu

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/insitu/types"
)

// Option configures a Runner with optional dependencies.
type Option func(*runnerOptions)

// runnerOptions holds optional Runner configuration.
type runnerOptions struct {
	logger     Logger
	metrics    MetricsSink
	registerer prometheus.Registerer
	hooks      *Hooks
	group      ProcessGroup
	engine     StepEngine
	backend    Backend
	assigner   BlockAssigner
	overrides  Overrides
}

// Overrides are explicit geometry values that win over both the settings
// file and source-declared attributes.
type Overrides struct {
	// Origin replaces the resolved mesh origin when non-nil.
	Origin *[3]float64

	// Spacing replaces the resolved mesh spacing when non-nil.
	Spacing *[3]float64
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewRunner
//
// Without this option the Runner logs through log/slog to stderr at the
// level selected by Config.Verbosity.
func WithLogger(logger Logger) Option {
	return func(o *runnerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink receiving step timers.
//
// Replaces the default sink built from Config.Metrics.
//
// Example:
//
//	timers := metrics.NewTimers(rank, logger, myRecorder)
//	runner, _ := insitu.NewRunner(cfg, insitu.WithMetrics(timers))
func WithMetrics(sink MetricsSink) Option {
	return func(o *runnerOptions) {
		o.metrics = sink
	}
}

// WithPrometheusRegisterer sets the registerer used when Config.Metrics.Namespace
// enables Prometheus export. Defaults to prometheus.DefaultRegisterer.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(o *runnerOptions) {
		o.registerer = reg
	}
}

// WithHooks sets loop event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewRunner
//
// Example:
//
//	hooks := &insitu.Hooks{
//	    OnStep: func(ctx context.Context, p *insitu.MeshPayload, step uint64) error {
//	        log.Printf("step %d: %d domains", step, len(p.Domains))
//	        return nil
//	    },
//	}
//	runner, _ := insitu.NewRunner(cfg, insitu.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *runnerOptions) {
		o.hooks = hooks
	}
}

// WithGroup sets the process group. Its rank and size replace Config.Group.
func WithGroup(group ProcessGroup) Option {
	return func(o *runnerOptions) {
		o.group = group
	}
}

// WithEngine makes the Runner read from engine instead of opening
// Config.Source. Used for in-process sources and tests.
//
// Example:
//
//	store := source.NewMemoryStore()
//	runner, _ := insitu.NewRunner(cfg, insitu.WithEngine(store.Reader()))
func WithEngine(engine StepEngine) Option {
	return func(o *runnerOptions) {
		o.engine = engine
	}
}

// WithBackend sets a backend instance instead of creating Config.Backend.Name
// from the registry.
func WithBackend(backend Backend) Option {
	return func(o *runnerOptions) {
		o.backend = backend
	}
}

// WithAssigner replaces the round-robin block assignment of preserve mode.
func WithAssigner(assigner types.BlockAssigner) Option {
	return func(o *runnerOptions) {
		o.assigner = assigner
	}
}

// WithOverrides sets explicit geometry overrides.
//
// Example:
//
//	spacing := [3]float64{0.05, 0.05, 0.05}
//	runner, _ := insitu.NewRunner(cfg, insitu.WithOverrides(insitu.Overrides{Spacing: &spacing}))
func WithOverrides(overrides Overrides) Option {
	return func(o *runnerOptions) {
		o.overrides = overrides
	}
}
