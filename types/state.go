package types

// LoopState represents the orchestration loop state.
//
// States follow a fixed progression for every step:
//
//	LoopIdle → LoopStepReady → LoopPublishing → LoopDraining → LoopIdle
//
// LoopTerminated is entered from LoopIdle on end of stream or timeout, and from
// any state on a fatal error. It is terminal.
type LoopState int

const (
	// LoopIdle indicates the loop is waiting for the next step.
	LoopIdle LoopState = iota

	// LoopStepReady indicates a step was attached and variables are being read.
	LoopStepReady

	// LoopPublishing indicates the mesh payload is being assembled and published.
	LoopPublishing

	// LoopDraining indicates the step is being released back to the source.
	LoopDraining

	// LoopTerminated indicates the loop has exited.
	LoopTerminated
)

// String returns the string representation of the state.
func (s LoopState) String() string {
	switch s {
	case LoopIdle:
		return "Idle"
	case LoopStepReady:
		return "StepReady"
	case LoopPublishing:
		return "Publishing"
	case LoopDraining:
		return "Draining"
	case LoopTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}
