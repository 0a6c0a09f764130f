// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; business rules never live here.
package httptransport

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reliefcore/internal/platform/middleware"
	"reliefcore/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// RedisHealth is the slice of the redis client the health endpoint needs.
type RedisHealth interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Registration RegistrationService
	Distribution DistributionService
	Logger       *slog.Logger
	JWTValidator middleware.JWTValidator

	// Nil when the corresponding backend is not configured.
	Postgres *sql.DB
	Redis    RedisHealth
}

// NewRouter wires all endpoints. Everything under /households, /distributions
// and /eligibility requires an agent credential; /healthz and /metrics are
// open for probes and scrapers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	registration := newRegistrationHandler(deps.Registration, deps.Logger)
	distribution := newDistributionHandler(deps.Distribution, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAgentAuth(deps.JWTValidator, deps.Logger))
		registration.register(r)
		distribution.register(r)
	})

	r.Get("/healthz", healthHandler(deps))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		checks := map[string]string{}
		healthy := true

		if deps.Postgres != nil {
			checks["postgres"] = "ok"
			if err := deps.Postgres.PingContext(ctx); err != nil {
				checks["postgres"] = "unreachable"
				healthy = false
			}
		}
		if deps.Redis != nil {
			checks["redis"] = "ok"
			if err := deps.Redis.Health(ctx); err != nil {
				checks["redis"] = "unreachable"
				healthy = false
			}
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		httputil.WriteJSON(w, status, map[string]any{
			"status": state,
			"checks": checks,
		})
	}
}
