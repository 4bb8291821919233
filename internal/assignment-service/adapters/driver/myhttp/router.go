package myhttp

import (
	"net/http"
	"time"

	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/handle"
	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/middleware"
	"food-dispatch/internal/assignment-service/adapters/driver/myhttp/ws"
	"food-dispatch/internal/health"
	"food-dispatch/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const requestTimeout = 30 * time.Second

// HealthChecks names the dependencies /healthz probes.
type HealthChecks map[string]health.Check

// NewRouter builds the assignment service routes. The websocket route sits
// outside the request timeout and metrics middleware.
func NewRouter(
	h *handle.AssignmentHandler,
	overview *handle.OverviewHandler,
	dispatcher *ws.Dispatcher,
	auth *middleware.AuthMiddleware,
	httpMetrics *metrics.HTTP,
	gatherer prometheus.Gatherer,
	checks HealthChecks,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)

	r.Get("/ws/drivers/{driver_id}", dispatcher.WsHandler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(requestTimeout), httpMetrics.Middleware)

		r.Get("/healthz", health.Handler(checks))
		r.Handle("/metrics", metrics.Handler(gatherer))
		r.Get("/admin/overview", overview.Get())

		r.Route("/assignments", func(r chi.Router) {
			r.Post("/process-order/{orderId}", h.ProcessOrder())
			r.With(auth.DriverOrService).Patch("/status", h.UpdateStatus())
			r.Get("/order/{orderId}", h.ListByOrder())
			r.Get("/driver/{driverId}", h.ListByDriver())
			r.Post("/{assignmentId}/cancel", h.Cancel())
			r.Get("/{assignmentId}", h.Get())
		})
	})

	return r
}
