// Package metrics provides observability for the release pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	// Run outcomes by terminal status.
	RunOutcome *prometheus.CounterVec

	// Gate decisions by outcome.
	GateDecision *prometheus.CounterVec

	// Step latencies by step kind.
	StepLatency *prometheus.HistogramVec

	// Overall run latency.
	RunLatency prometheus.Histogram
}

// New creates a Metrics instance registered on the given registerer.
// A nil registerer uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_release_runs_total",
			Help: "Total pipeline runs by terminal status",
		}, []string{"status"}),

		GateDecision: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "forge_release_gate_decisions_total",
			Help: "Total pre-release gate decisions by outcome",
		}, []string{"outcome"}),

		StepLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forge_release_step_duration_seconds",
			Help:    "Duration of pipeline steps by kind",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"kind"}),

		RunLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "forge_release_run_duration_seconds",
			Help:    "Duration of complete pipeline runs",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800},
		}),
	}
}

// IncrementRunOutcome records a finished run.
func (m *Metrics) IncrementRunOutcome(status string) {
	if m != nil {
		m.RunOutcome.WithLabelValues(status).Inc()
	}
}

// IncrementGateDecision records a gate decision.
func (m *Metrics) IncrementGateDecision(outcome string) {
	if m != nil {
		m.GateDecision.WithLabelValues(outcome).Inc()
	}
}

// ObserveStepLatency records the duration of one step.
func (m *Metrics) ObserveStepLatency(kind string, d time.Duration) {
	if m != nil {
		m.StepLatency.WithLabelValues(kind).Observe(d.Seconds())
	}
}

// ObserveRunLatency records the duration of a complete run.
func (m *Metrics) ObserveRunLatency(d time.Duration) {
	if m != nil {
		m.RunLatency.Observe(d.Seconds())
	}
}
