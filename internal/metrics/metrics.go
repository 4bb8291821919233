package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch holds the counters of the assignment pipeline.
type Dispatch struct {
	AssignmentsCreated *prometheus.CounterVec
	CommitOutcomes     *prometheus.CounterVec
	OfferDeliveries    *prometheus.CounterVec
	AssignmentsExpired prometheus.Counter
	GatewayRetries     prometheus.Counter
}

// NewDispatch creates and registers the dispatch counters on reg.
func NewDispatch(reg prometheus.Registerer) *Dispatch {
	m := &Dispatch{
		AssignmentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_assignments_created_total",
			Help: "Assignments created, by initial status",
		}, []string{"status"}),
		CommitOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_commit_outcomes_total",
			Help: "Accept responses by commit outcome",
		}, []string{"outcome"}),
		OfferDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_offer_deliveries_total",
			Help: "Offer deliveries by channel and result",
		}, []string{"channel", "result"}),
		AssignmentsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_assignments_expired_total",
			Help: "Assignments expired by the sweep",
		}),
		GatewayRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_retries_total",
			Help: "Total number of retry attempts performed by gateways",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.AssignmentsCreated, m.CommitOutcomes, m.OfferDeliveries, m.AssignmentsExpired, m.GatewayRetries)
	}
	return m
}

// Identity holds the counters of the reconciliation loop.
type Identity struct {
	Reconciliations *prometheus.CounterVec
	RetryAttempts   *prometheus.CounterVec
}

func NewIdentity(reg prometheus.Registerer) *Identity {
	m := &Identity{
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_reconciliations_total",
			Help: "Registration results applied, by outcome",
		}, []string{"outcome"}),
		RetryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_retry_attempts_total",
			Help: "Registration republish attempts by the retry sweep, by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.Reconciliations, m.RetryAttempts)
	}
	return m
}

// HTTP counts and times requests by route pattern.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

// Middleware records every request under its chi route pattern.
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := pathPattern(r)
		status := strconv.Itoa(ww.Status())
		m.requests.WithLabelValues(r.Method, path, status).Inc()
		m.duration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func pathPattern(r *http.Request) string {
	rc := chi.RouteContext(r.Context())
	if rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
