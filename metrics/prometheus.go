package metrics

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/insitu/types"
)

// PrometheusRecorder exports step timers to Prometheus.
//
// Metrics (namespace defaults to "insitu"):
//   - <ns>_step_phase_seconds{phase,rank}: histogram of per-step phase durations
//   - <ns>_steps_total{rank}: flushed steps
//   - <ns>_last_step{rank}: number of the last flushed step
type PrometheusRecorder struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once
	regErr    error

	phaseSeconds *prometheus.HistogramVec
	steps        *prometheus.CounterVec
	lastStep     *prometheus.GaugeVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates a Prometheus-backed recorder.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "insitu" if empty)
//
// Returns:
//   - *PrometheusRecorder: Recorder registering its collectors on first use
func NewPrometheusRecorder(reg prometheus.Registerer, namespace string) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "insitu"
	}

	return &PrometheusRecorder{reg: reg, namespace: namespace}
}

func (p *PrometheusRecorder) ensureRegistered() error {
	p.once.Do(func() {
		p.phaseSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      "step_phase_seconds",
			Help:      "Per-step duration of each loop phase in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms .. ~16s
		}, []string{"phase", "rank"})

		p.steps = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "steps_total",
			Help:      "Total steps processed.",
		}, []string{"rank"})

		p.lastStep = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "last_step",
			Help:      "Number of the last processed step.",
		}, []string{"rank"})

		p.phaseSeconds = register(p, p.phaseSeconds)
		p.steps = register(p, p.steps)
		p.lastStep = register(p, p.lastStep)
	})

	return p.regErr
}

// Record observes every timer of rec. The trailing record (types.NoStep)
// feeds the phase histogram only.
func (p *PrometheusRecorder) Record(rec StepRecord) error {
	if err := p.ensureRegistered(); err != nil {
		return err
	}

	rank := strconv.Itoa(rec.Rank)
	for _, name := range rec.Names {
		p.phaseSeconds.WithLabelValues(name, rank).Observe(rec.Durations[name].Seconds())
	}
	if rec.Step == types.NoStep {
		return nil
	}
	p.steps.WithLabelValues(rank).Inc()
	p.lastStep.WithLabelValues(rank).Set(float64(rec.Step))

	return nil
}

// register registers c, reusing an identical collector that is already registered.
func register[C prometheus.Collector](p *PrometheusRecorder, c C) C {
	if p.regErr != nil {
		return c
	}

	err := p.reg.Register(c)
	if err == nil {
		return c
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing
		}
	}
	p.regErr = err

	return c
}
