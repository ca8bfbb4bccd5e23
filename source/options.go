package source

import (
	"time"

	"github.com/arloliu/insitu/internal/logging"
	"github.com/arloliu/insitu/types"
)

// Option configures an engine or writer.
type Option func(*engineOptions)

type engineOptions struct {
	logger       types.Logger
	pollInterval time.Duration
	fetchSlice   time.Duration
	maxRetries   int
}

func defaultEngineOptions() engineOptions {
	return engineOptions{
		logger:       logging.NewNop(),
		pollInterval: 20 * time.Millisecond,
		fetchSlice:   time.Second,
		maxRetries:   5,
	}
}

func applyOptions(opts []Option) engineOptions {
	o := defaultEngineOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// WithLogger sets the engine logger. Engines log at Debug level only.
func WithLogger(logger types.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logging.OrNop(logger)
	}
}

// WithPollInterval sets how often the file engine checks for new steps.
//
// Default: 20ms
func WithPollInterval(d time.Duration) Option {
	return func(o *engineOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithFetchSlice sets the longest single JetStream fetch while waiting
// without bound. Cancellation is observed between slices.
//
// Default: 1s
func WithFetchSlice(d time.Duration) Option {
	return func(o *engineOptions) {
		if d > 0 {
			o.fetchSlice = d
		}
	}
}

// WithMaxRetries sets the retry budget for creating JetStream resources.
//
// Default: 5
func WithMaxRetries(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}
