package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the registration workflow.
type Metrics struct {
	RegistrationsTotal   prometheus.Counter
	DuplicatesRejected   prometheus.Counter
	CollisionRetries     prometheus.Counter
	CollisionExhaustions prometheus.Counter
	RegisterDurationMs   prometheus.Histogram
}

// New creates and registers all registration metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefcore_registrations_total",
			Help: "Total number of households successfully registered",
		}),
		DuplicatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefcore_registration_duplicates_total",
			Help: "Registration attempts rejected because the identity was already registered",
		}),
		CollisionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefcore_identifier_collision_retries_total",
			Help: "Identifier derivations retried because the candidate already existed",
		}),
		CollisionExhaustions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reliefcore_identifier_collision_exhaustions_total",
			Help: "Registrations failed after exhausting the identifier retry budget",
		}),
		RegisterDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reliefcore_register_duration_ms",
			Help:    "Latency of the registration workflow in milliseconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		}),
	}
}
