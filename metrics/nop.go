package metrics

import "github.com/arloliu/insitu/types"

// NopSink is a no-op metrics sink.
//
// This is the default sink used when no sink is provided, eliminating nil
// checks in the read path.
type NopSink struct{}

// Compile-time assertion that NopSink implements MetricsSink.
var _ types.MetricsSink = (*NopSink)(nil)

// NewNop creates a new no-op sink.
func NewNop() *NopSink {
	return &NopSink{}
}

// Start is a no-op.
func (n *NopSink) Start(_ string) {}

// Stop is a no-op.
func (n *NopSink) Stop(_ string) {}

// Flush is a no-op.
func (n *NopSink) Flush(_ uint64) {}
