package myhttp

import (
	"net/http"
	"time"

	"food-dispatch/internal/health"
	"food-dispatch/internal/identity-service/adapters/driver/myhttp/handle"
	"food-dispatch/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const requestTimeout = 30 * time.Second

type HealthChecks map[string]health.Check

func NewRouter(h *handle.RegistrationHandler, httpMetrics *metrics.HTTP, gatherer prometheus.Gatherer, checks HealthChecks) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer, chimw.Timeout(requestTimeout), httpMetrics.Middleware)

	r.Get("/healthz", health.Handler(checks))
	r.Handle("/metrics", metrics.Handler(gatherer))

	r.Route("/drivers", func(r chi.Router) {
		r.Post("/register", h.Register())
		r.Get("/identities/{provisionalId}", h.Get())
	})
	return r
}
