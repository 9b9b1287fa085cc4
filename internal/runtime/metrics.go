package runtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline observability counters. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	PhaseRuns      *prometheus.CounterVec
	PhaseSkips     *prometheus.CounterVec
	PipelineHalts  prometheus.Counter
	SolverDuration *prometheus.HistogramVec
}

// NewMetrics registers the pipeline metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PhaseRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nestor_phase_runs_total",
			Help: "Pipeline phases executed (not skipped), by phase.",
		}, []string{"phase"}),
		PhaseSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nestor_phase_skips_total",
			Help: "Pipeline phases skipped by an idempotency check, by phase.",
		}, []string{"phase"}),
		PipelineHalts: factory.NewCounter(prometheus.CounterOpts{
			Name: "nestor_pipeline_halts_total",
			Help: "Pipelines halted on an unmet precondition.",
		}),
		SolverDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nestor_solver_duration_seconds",
			Help:    "Wall time of external solver runs.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}, []string{"domain"}),
	}
}

func (m *Metrics) phaseRun(phase string) {
	if m != nil {
		m.PhaseRuns.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) phaseSkip(phase string) {
	if m != nil {
		m.PhaseSkips.WithLabelValues(phase).Inc()
	}
}

func (m *Metrics) halt() {
	if m != nil {
		m.PipelineHalts.Inc()
	}
}

func (m *Metrics) solverSeconds(domainLabel string, seconds float64) {
	if m != nil {
		m.SolverDuration.WithLabelValues(domainLabel).Observe(seconds)
	}
}
