package types

// Timer names recorded by the orchestration loop.
const (
	TimerTotalStep      = "total_step"
	TimerTransportWait  = "transport_wait"
	TimerDataTransfer   = "data_transfer"
	TimerMeshAssembly   = "mesh_assembly"
	TimerBackendExecute = "backend_execute"
)

// ReadTimerName returns the per-variable transfer timer name.
func ReadTimerName(variable string) string {
	return "read_" + variable
}

// MetricsSink accepts named timer events and a per-step flush.
//
// Start and Stop calls for the same name may repeat within a step; sinks
// accumulate them. Flush closes the step. Implementations should be
// non-blocking and handle failures gracefully.
type MetricsSink interface {
	// Start starts the named timer.
	Start(name string)

	// Stop stops the named timer and accumulates the elapsed time.
	Stop(name string)

	// Flush records the accumulated timers for the step and resets them.
	// NoStep marks the trailing wait that ended the run without a step.
	Flush(step uint64)
}
