// Package metrics exposes request counters and latencies in Prometheus
// format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of the process.
var Registry = prometheus.NewRegistry()

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mixmaster_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mixmaster_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	writes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mixmaster_catalog_writes_total",
		Help: "Catalog writes by entity and operation.",
	}, []string{"entity", "op"})
)

func init() {
	Registry.MustRegister(
		requests, latency, writes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Observe records one finished request.
func Observe(method, route, status string, d time.Duration) {
	requests.WithLabelValues(method, route, status).Inc()
	latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Write counts a successful catalog write.
func Write(entity, op string) {
	writes.WithLabelValues(entity, op).Inc()
}

// Unmatched labels requests no registered route served: 404s, 405s and
// the router's own redirects.
const Unmatched = "unmatched"

type routeKey struct{}

// WithRoute returns r carrying a route slot set to Unmatched, and the slot.
// Track fills it in once the router has picked a route.
func WithRoute(r *http.Request) (*http.Request, *string) {
	route := Unmatched
	return r.WithContext(context.WithValue(r.Context(), routeKey{}, &route)), &route
}

func setRoute(r *http.Request, pattern string) {
	if slot, ok := r.Context().Value(routeKey{}).(*string); ok {
		*slot = pattern
	}
}

// Track labels requests served by next with the registered pattern, so
// parameter values never become label values.
func Track(pattern string, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		setRoute(r, pattern)
		next(w, r, ps)
	}
}

// TrackHandler is Track for plain http.Handlers.
func TrackHandler(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setRoute(r, pattern)
		next.ServeHTTP(w, r)
	})
}

// Handler serves the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
