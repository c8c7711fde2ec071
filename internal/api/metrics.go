package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route patterns, shared by the router and the request metrics.
const (
	routeHealthz    = "/healthz"
	routeMetrics    = "/metrics"
	routeRegister   = "/api/vps"
	routeRecords    = "/api/vpsuser"
	routeLogStream  = "/api/vpsuser/logs"
	routeUnmatched  = "unmatched"
	apiRoutesPrefix = "/api/"
)

// Callers split request metrics into worker callbacks, operator traffic
// and the service's own health and scrape endpoints.
const (
	callerWorker   = "worker"
	callerOperator = "operator"
	callerInternal = "internal"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capsule_http_requests_total",
			Help: "HTTP requests by caller, route and response code.",
		},
		[]string{"caller", "method", "route", "code"},
	)

	// Every ingest and list reads the whole store, so latency tracks the
	// store size. Live log streams are excluded.
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "capsule_http_request_duration_seconds",
			Help:    "Latency of non-streaming HTTP requests in seconds.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"caller", "method", "route"},
	)

	logStreamsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "capsule_log_streams_active",
		Help: "Open live log streams.",
	})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, logStreamsActive)
}

// metricsMiddleware records count and latency per caller and chi route
// pattern. The raw path is never used as a label.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := routePattern(r)
		caller := callerFor(r.Method, route)
		httpRequestsTotal.WithLabelValues(caller, r.Method, route, strconv.Itoa(status)).Inc()
		if route != routeLogStream {
			httpRequestDuration.WithLabelValues(caller, r.Method, route).Observe(time.Since(start).Seconds())
		}
	})
}

// callerFor classifies a request. Only POST on the records route is a
// worker callback; every other API route is operator traffic.
func callerFor(method, route string) string {
	switch {
	case route == routeRecords && method == http.MethodPost:
		return callerWorker
	case strings.HasPrefix(route, apiRoutesPrefix):
		return callerOperator
	default:
		return callerInternal
	}
}

// routePattern extracts the matched chi route pattern, falling back to
// routeUnmatched.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return routeUnmatched
}

// metricsHandler returns the Prometheus metrics handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
