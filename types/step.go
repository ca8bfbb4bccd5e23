package types

import (
	"fmt"
	"strings"
	"time"
)

// StepStatus is the outcome of attaching to the next step of a source.
type StepStatus int

const (
	// StepReady indicates new step data is available for reading.
	StepReady StepStatus = iota

	// StepEndOfStream indicates the source signalled completion. Terminal.
	StepEndOfStream

	// StepTimedOut indicates no step arrived within the wait bound.
	// Only produced under a timeout wait policy.
	StepTimedOut
)

// String returns the string representation of the step status.
func (s StepStatus) String() string {
	switch s {
	case StepReady:
		return "Ready"
	case StepEndOfStream:
		return "EndOfStream"
	case StepTimedOut:
		return "TimedOut"
	default:
		return "Unknown"
	}
}

// StepContext is produced once per loop iteration and consumed immediately.
type StepContext struct {
	// Step is the source step number. Only meaningful when Status is StepReady.
	Step uint64

	// Status is the outcome of the BeginStep call.
	Status StepStatus
}

// Ready reports whether the context carries a readable step.
func (c StepContext) Ready() bool {
	return c.Status == StepReady
}

// WaitMode selects how BeginStep waits for new step data.
type WaitMode int

const (
	// WaitBlock waits until a step arrives or the source ends.
	WaitBlock WaitMode = iota

	// WaitTimeout waits at most WaitPolicy.Timeout for a step.
	WaitTimeout
)

// String returns the settings-file spelling of the wait mode.
func (m WaitMode) String() string {
	switch m {
	case WaitBlock:
		return "block"
	case WaitTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m WaitMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *WaitMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "block":
		*m = WaitBlock
	case "timeout":
		*m = WaitTimeout
	default:
		return fmt.Errorf("%w: unknown wait mode %q", ErrInvalidConfig, string(text))
	}

	return nil
}

// WaitPolicy controls the wait bound of a single BeginStep call.
type WaitPolicy struct {
	Mode    WaitMode
	Timeout time.Duration
}

// BlockPolicy returns a policy that waits without bound.
func BlockPolicy() WaitPolicy {
	return WaitPolicy{Mode: WaitBlock}
}

// TimeoutPolicy returns a policy that waits at most d.
func TimeoutPolicy(d time.Duration) WaitPolicy {
	return WaitPolicy{Mode: WaitTimeout, Timeout: d}
}

// Bound returns the engine-level wait bound. Zero or negative means unbounded.
func (p WaitPolicy) Bound() time.Duration {
	if p.Mode != WaitTimeout {
		return 0
	}

	return p.Timeout
}

// PartitionMode selects the distribution used to read variables.
type PartitionMode int

const (
	// PartitionPreserve reassigns the source's write-time blocks round-robin.
	PartitionPreserve PartitionMode = iota

	// PartitionRepartition reads a balanced contiguous slab of the leading dimension.
	PartitionRepartition
)

// String returns the settings-file spelling of the partition mode.
func (m PartitionMode) String() string {
	switch m {
	case PartitionPreserve:
		return "preserve"
	case PartitionRepartition:
		return "repartition"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m PartitionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *PartitionMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "preserve":
		*m = PartitionPreserve
	case "repartition":
		*m = PartitionRepartition
	default:
		return fmt.Errorf("%w: unknown partition mode %q", ErrInvalidConfig, string(text))
	}

	return nil
}
