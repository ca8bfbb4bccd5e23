// Package metrics provides types.MetricsSink implementations.
//
// The orchestration loop starts and stops named timers during a step and
// flushes them once per step. Timers accumulates the durations of one step
// and hands a StepRecord to every Recorder on Flush. The package includes:
//
//   - Nop: discards everything (default)
//   - Timers: per-step accumulator with pluggable recorders
//   - PrometheusRecorder: histogram per phase, step counter, last-step gauge
//   - CSVRecorder: one row per step and rank, like a classic performance log
package metrics
