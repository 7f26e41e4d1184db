// Package metrics provides Prometheus metrics for the migration planner and
// its preview HTTP service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector mygrate registers.
type Metrics struct {
	PlanDuration      *prometheus.HistogramVec
	PlanOperations    *prometheus.CounterVec
	Plan1215Errors    prometheus.Counter
	HTTPRequestsTotal *prometheus.CounterVec
	HTTPRequestsInFlight prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with all collectors registered on a
// private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.PlanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mygrate_plan_duration_seconds",
			Help:    "Time spent computing a migration plan, by outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	m.PlanOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mygrate_plan_operations_total",
			Help: "Number of DDL operations emitted by the planner, by kind.",
		},
		[]string{"kind"},
	)

	m.Plan1215Errors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mygrate_plan_1215_errors_total",
			Help: "Total number of unsatisfiable foreign key errors reported across all plans.",
		},
	)

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mygrate_http_requests_total",
			Help: "Total number of HTTP requests served by the preview API, by route and status.",
		},
		[]string{"route", "status"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mygrate_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed.",
		},
	)

	m.registry.MustRegister(
		m.PlanDuration,
		m.PlanOperations,
		m.Plan1215Errors,
		m.HTTPRequestsTotal,
		m.HTTPRequestsInFlight,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObservePlan records the outcome of one planner run: its wall-clock
// duration, the count of each operation kind emitted, and any 1215 errors.
func (m *Metrics) ObservePlan(duration time.Duration, kindCounts map[string]int, errorCount int) {
	outcome := "ok"
	if errorCount > 0 {
		outcome = "rejected"
	}
	m.PlanDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	for kind, n := range kindCounts {
		m.PlanOperations.WithLabelValues(kind).Add(float64(n))
	}
	if errorCount > 0 {
		m.Plan1215Errors.Add(float64(errorCount))
	}
}

// Middleware returns HTTP middleware that records request counts in flight
// and by route/status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		m.HTTPRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
