// Package metrics provides observability for the approval module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the approval module's Prometheus metrics. A nil *Metrics is
// safe to call, so tests and tools can skip registration.
type Metrics struct {
	RequestsSubmitted prometheus.Counter
	DecisionOutcome   *prometheus.CounterVec
	VersionConflicts  prometheus.Counter
	DecideLatency     prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		RequestsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_requests_submitted_total",
			Help: "Total attendance requests submitted",
		}),
		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventdesk_decision_outcomes_total",
			Help: "Total decisions by outcome",
		}, []string{"outcome"}),
		VersionConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "eventdesk_version_conflicts_total",
			Help: "Total optimistic concurrency conflicts detected on decide",
		}),
		DecideLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventdesk_decide_duration_seconds",
			Help:    "Duration of the full decide operation including audit writes",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	if m != nil {
		m.RequestsSubmitted.Inc()
	}
}

func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementConflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}

func (m *Metrics) ObserveDecideLatency(d time.Duration) {
	if m != nil {
		m.DecideLatency.Observe(d.Seconds())
	}
}
