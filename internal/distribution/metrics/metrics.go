package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the distribution workflow.
type Metrics struct {
	DistributionsTotal   *prometheus.CounterVec
	CooldownRejections   *prometheus.CounterVec
	EligibilityChecks    prometheus.Counter
	DistributeDurationMs prometheus.Histogram
}

// New creates and registers all distribution metrics.
func New() *Metrics {
	return &Metrics{
		DistributionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefcore_distributions_total",
			Help: "Distribution events appended to the ledger, by aid category",
		}, []string{"category"}),
		CooldownRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reliefcore_distribution_cooldown_rejections_total",
			Help: "Distribution attempts rejected because the category cooldown was still active",
		}, []string{"category"}),
		EligibilityChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefcore_eligibility_checks_total",
			Help: "Eligibility checks served, standalone or inside the distribution workflow",
		}),
		DistributeDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reliefcore_distribute_duration_ms",
			Help:    "Latency of the distribution workflow in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}
