package transport

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arloliu/insitu/source"
	"github.com/arloliu/insitu/types"
)

// EngineKind selects the open-timeout policy of an engine.
type EngineKind int

const (
	// KindFile engines read persisted data; open is bounded (DefaultFileOpenTimeout).
	KindFile EngineKind = iota

	// KindStream engines attach to a live producer; open is unbounded by default.
	KindStream
)

// DefaultFileOpenTimeout bounds the open of file engines when EngineConfig.OpenTimeout is unset.
const DefaultFileOpenTimeout = 5 * time.Second

// String returns the string representation of the engine kind.
func (k EngineKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// OpenFunc opens an engine for cfg. ctx carries the open deadline.
type OpenFunc func(ctx context.Context, cfg EngineConfig, logger types.Logger) (types.StepEngine, error)

type engineEntry struct {
	name string
	kind EngineKind
	open OpenFunc
}

var engines = xsync.NewMap[string, engineEntry]()

// RegisterEngine adds an engine to the registry under name and aliases.
//
// Names are case-insensitive. Registering an existing name replaces it.
//
// Parameters:
//   - name: Engine name used in EngineConfig.Engine
//   - kind: Open-timeout policy
//   - open: Constructor
//   - aliases: Additional names
func RegisterEngine(name string, kind EngineKind, open OpenFunc, aliases ...string) {
	entry := engineEntry{name: name, kind: kind, open: open}
	for _, n := range append([]string{name}, aliases...) {
		engines.Store(strings.ToLower(n), entry)
	}
}

// Engines returns the registered engine names, including aliases.
func Engines() []string {
	names := make([]string, 0, engines.Size())
	engines.Range(func(name string, _ engineEntry) bool {
		names = append(names, name)
		return true
	})

	return names
}

func lookupEngine(name string) (engineEntry, error) {
	entry, ok := engines.Load(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return engineEntry{}, fmt.Errorf("%w: %q", types.ErrUnknownEngine, name)
	}

	return entry, nil
}

// engineOptions translates EngineConfig into source options.
func engineOptions(cfg EngineConfig, logger types.Logger) ([]source.Option, error) {
	opts := []source.Option{}
	if cfg.Verbose > 0 {
		opts = append(opts, source.WithLogger(logger))
	}

	for key, apply := range map[string]func(time.Duration) source.Option{
		"pollInterval": source.WithPollInterval,
		"fetchSlice":   source.WithFetchSlice,
	} {
		raw, ok := cfg.Params[key]
		if !ok {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: engine parameter %s: %w", types.ErrInvalidConfig, key, err)
		}
		opts = append(opts, apply(d))
	}

	return opts, nil
}

func openFile(ctx context.Context, cfg EngineConfig, logger types.Logger) (types.StepEngine, error) {
	opts, err := engineOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	return source.OpenFile(ctx, cfg.Locator, opts...)
}

func openJetStream(ctx context.Context, cfg EngineConfig, logger types.Logger) (types.StepEngine, error) {
	opts, err := engineOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	return source.DialJetStream(ctx, cfg.Locator, opts...)
}

func init() {
	RegisterEngine("file", KindFile, openFile, "bp", "dir")
	RegisterEngine("jetstream", KindStream, openJetStream, "stream", "sst")
}
