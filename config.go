package insitu

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arloliu/insitu/mesh"
	"github.com/arloliu/insitu/types"
)

// SourceConfig selects the step source.
type SourceConfig struct {
	// Locator identifies the source: a directory for file engines, or
	// nats://host:port/<name> for the jetstream engine.
	Locator string `yaml:"locator"`

	// Engine is the registered engine name ("file", "jetstream" or an alias).
	Engine string `yaml:"engine"`

	// OpenTimeout bounds attaching to the source.
	// Zero selects the engine default (5s for file engines, unbounded for streams).
	OpenTimeout time.Duration `yaml:"openTimeout"`

	// Verbose enables engine debug output when positive.
	Verbose int `yaml:"verbose"`

	// Params holds engine-specific settings ("pollInterval", "fetchSlice").
	Params map[string]string `yaml:"params"`
}

// VariablesConfig names the variables read every step.
type VariablesConfig struct {
	// Primary must exist in every step; its absence aborts the run.
	Primary string `yaml:"primary"`

	// Secondary is optional and attached only when present and geometry-compatible.
	Secondary string `yaml:"secondary"`
}

// WaitConfig controls how long each step wait may take.
type WaitConfig struct {
	// Mode is "block" or "timeout".
	Mode types.WaitMode `yaml:"mode"`

	// Timeout bounds each wait in timeout mode.
	Timeout time.Duration `yaml:"timeout"`
}

// Policy returns the wait policy handed to the transport.
func (w WaitConfig) Policy() types.WaitPolicy {
	if w.Mode == types.WaitTimeout {
		return types.TimeoutPolicy(w.Timeout)
	}

	return types.BlockPolicy()
}

// BackendSettings selects and configures the analysis backend.
type BackendSettings struct {
	// Name is the registered backend name ("nop", "stats", "nats", "amqp").
	Name string `yaml:"name"`

	// Action is passed to Execute every step when non-empty.
	Action string `yaml:"action"`

	// Options are backend-specific settings.
	Options map[string]string `yaml:"options"`
}

// GroupConfig describes the reader process group.
type GroupConfig struct {
	// Rank is this process's rank in [0, Size).
	Rank int `yaml:"rank"`

	// Size is the number of reader processes.
	Size int `yaml:"size"`

	// URL enables the NATS abort broadcast when set.
	URL string `yaml:"url"`

	// Subject is the abort broadcast subject prefix.
	Subject string `yaml:"subject"`
}

// MetricsConfig selects the step timer recorders.
type MetricsConfig struct {
	// Namespace enables Prometheus export under this namespace when set.
	Namespace string `yaml:"namespace"`

	// CSVDir enables the per-rank CSV step log in this directory when set.
	CSVDir string `yaml:"csvDir"`
}

// Config is the configuration of a Runner.
//
// All duration fields accept standard Go duration strings like "2s", "500ms".
type Config struct {
	// Source selects the step source.
	Source SourceConfig `yaml:"source"`

	// Variables names the primary and optional secondary variable.
	Variables VariablesConfig `yaml:"variables"`

	// PartitionMode is "preserve" or "repartition".
	PartitionMode types.PartitionMode `yaml:"partitionMode"`

	// Wait controls the per-step wait bound.
	Wait WaitConfig `yaml:"wait"`

	// Verbosity selects the log level: negative warn, 0 info, 1 or more debug.
	Verbosity int `yaml:"verbosity"`

	// Debug validates every payload and logs per-rank block counts.
	Debug bool `yaml:"debug"`

	// Mesh is the global grid geometry. Source attributes override it.
	Mesh mesh.Geometry `yaml:"mesh"`

	// Backend selects the analysis backend.
	Backend BackendSettings `yaml:"backend"`

	// Group describes the reader process group.
	Group GroupConfig `yaml:"group"`

	// Metrics selects the step timer recorders.
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Engine: "file",
		},
		PartitionMode: types.PartitionPreserve,
		Wait: WaitConfig{
			Mode: types.WaitBlock,
		},
		Mesh: mesh.DefaultGeometry(),
		Backend: BackendSettings{
			Name: "nop",
		},
		Group: GroupConfig{
			Rank: 0,
			Size: 1,
		},
	}
}

// LoadConfig reads a YAML settings file on top of DefaultConfig.
//
// Parameters:
//   - path: Settings file path
//
// Returns:
//   - Config: Defaults overridden by the file, with SetDefaults applied
//   - error: Read or parse failure wrapped with ErrInvalidConfig
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML settings on top of DefaultConfig.
//
// Example:
//
//	cfg, err := insitu.ParseConfig([]byte(`
//	source: {locator: /data/heat, engine: file}
//	variables: {primary: T, secondary: P}
//	partitionMode: repartition
//	`))
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	SetDefaults(&cfg)

	return cfg, nil
}

// SetDefaults fills in missing configuration values with defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Source.Engine == "" {
		cfg.Source.Engine = defaults.Source.Engine
	}
	if cfg.Mesh.Spacing == [3]float64{} {
		cfg.Mesh.Spacing = defaults.Mesh.Spacing
	}
	if cfg.Backend.Name == "" {
		cfg.Backend.Name = defaults.Backend.Name
	}
	if cfg.Group.Size == 0 {
		cfg.Group.Size = defaults.Group.Size
	}
	// Note: a zero wait timeout is rejected by Validate rather than defaulted
}

// Validate checks configuration constraints.
//
// Hard Validation Rules:
//   - Variables.Primary is set
//   - 0 <= Group.Rank < Group.Size
//   - Wait.Timeout > 0 in timeout mode
//   - every Mesh.Spacing component > 0
//   - Source.OpenTimeout >= 0
//
// Returns:
//   - error: Validation error wrapping ErrInvalidConfig, nil if valid
func (cfg *Config) Validate() error {
	if cfg.Variables.Primary == "" {
		return fmt.Errorf("%w: variables.primary is required", ErrInvalidConfig)
	}

	if cfg.Group.Size <= 0 || cfg.Group.Rank < 0 || cfg.Group.Rank >= cfg.Group.Size {
		return fmt.Errorf("%w: group rank %d must be in [0, %d)", ErrInvalidConfig, cfg.Group.Rank, cfg.Group.Size)
	}

	if cfg.Wait.Mode == types.WaitTimeout && cfg.Wait.Timeout <= 0 {
		return fmt.Errorf("%w: wait.timeout must be > 0 in timeout mode, got %v", ErrInvalidConfig, cfg.Wait.Timeout)
	}

	if cfg.Source.OpenTimeout < 0 {
		return fmt.Errorf("%w: source.openTimeout must be >= 0, got %v", ErrInvalidConfig, cfg.Source.OpenTimeout)
	}

	return cfg.Mesh.Validate()
}

// ValidateWithWarnings logs warnings for legal but suspicious values.
//
// Parameters:
//   - logger: Logger instance for warning output
func (cfg *Config) ValidateWithWarnings(logger Logger) {
	if cfg.Variables.Secondary != "" && cfg.Variables.Secondary == cfg.Variables.Primary {
		logger.Warn("secondary variable equals primary, it will be read twice",
			"variable", cfg.Variables.Primary)
	}

	if cfg.Wait.Mode == types.WaitTimeout && cfg.Wait.Timeout < 100*time.Millisecond {
		logger.Warn("wait timeout is very short, slow producers will end the run",
			"timeout", cfg.Wait.Timeout,
			"recommended", "1s or higher",
		)
	}

	if cfg.Wait.Mode == types.WaitBlock && cfg.Group.URL == "" && cfg.Group.Size > 1 {
		logger.Warn("blocking wait without an abort broadcast, a failed peer may leave ranks waiting",
			"size", cfg.Group.Size)
	}
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Returns:
//   - Config: Configuration with a short wait timeout and the nop backend
//
// Example:
//
//	cfg := insitu.TestConfig()
//	cfg.Variables.Primary = "T"
//	runner, err := insitu.NewRunner(cfg, insitu.WithEngine(store.Reader()))
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.Wait = WaitConfig{Mode: types.WaitTimeout, Timeout: 200 * time.Millisecond}
	cfg.Source.OpenTimeout = time.Second

	return cfg
}
