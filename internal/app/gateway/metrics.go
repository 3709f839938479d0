package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects request counters and latency for every route plus a
// counter for watcher-forced expiries.
type Metrics struct {
	requests        *prometheus.CounterVec
	duration        prometheus.Histogram
	sessionsExpired prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_sessions_expired_total",
			Help: "Sessions forced out by the expiry watcher.",
		}),
	}

	reg.MustRegister(m.requests, m.duration, m.sessionsExpired)
	return m
}

func (m *Metrics) RecordSessionExpired() {
	m.sessionsExpired.Inc()
}

// Middleware records one observation per request, labelled with the
// chi route pattern rather than the raw path so ids do not explode
// cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		m.duration.Observe(time.Since(start).Seconds())
	})
}

// MetricsHandler exposes the registry for Prometheus scrapes.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
