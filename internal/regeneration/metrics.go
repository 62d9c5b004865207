package regeneration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the regeneration loop.
type Metrics struct {
	// AttemptsTotal counts attempts by result: accepted, candidate, failed.
	AttemptsTotal *prometheus.CounterVec

	// SessionsTotal counts finished sessions by outcome.
	SessionsTotal *prometheus.CounterVec

	SelectionScore     prometheus.Histogram
	AttemptsPerSession prometheus.Histogram
}

// NewMetrics creates regeneration metrics registered on reg.
//
// Metrics:
//   - promptgate_regeneration_attempts_total{result}
//   - promptgate_regeneration_sessions_total{outcome}
//   - promptgate_regeneration_selection_score
//   - promptgate_regeneration_attempts_per_session
//
// A nil reg creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_regeneration_attempts_total",
				Help: "Total number of regeneration attempts",
			},
			[]string{"result"}, // "accepted", "candidate", "failed"
		),
		SessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptgate_regeneration_sessions_total",
				Help: "Total number of regeneration sessions",
			},
			[]string{"outcome"},
		),
		SelectionScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "promptgate_regeneration_selection_score",
				Help:    "Selection scores of scored attempts",
				Buckets: []float64{0, 20, 40, 50, 60, 70, 80, 90, 100, 120},
			},
		),
		AttemptsPerSession: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "promptgate_regeneration_attempts_per_session",
				Help:    "Attempts consumed per regeneration session",
				Buckets: prometheus.LinearBuckets(1, 1, 10),
			},
		),
	}
}
