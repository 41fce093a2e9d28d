package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route matched, keeping arbitrary URLs
// out of the label space.
const unmatchedRoute = "unmatched"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acmanager",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, route group, method and status",
		},
		[]string{"path", "route_group", "method", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "acmanager",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{.005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route_group", "method"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "acmanager",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "In-flight HTTP requests",
		},
		[]string{"method"},
	)

	lifecycleRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "acmanager",
			Subsystem: "http",
			Name:      "lifecycle_requests_total",
			Help:      "Server lifecycle requests (start, stop, restart, stop_all, apply) by outcome",
		},
		[]string{"action", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpInflight, lifecycleRequests)
}

// statusRecorder wraps http.ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware instruments requests for Prometheus. Labels are resolved
// after the handler ran, when chi has recorded the matched pattern. Stop and
// apply can take as long as the stop timeout, hence the wide buckets.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		httpInflight.WithLabelValues(method).Inc()
		defer httpInflight.WithLabelValues(method).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		pattern := routePattern(r)
		group := routeGroup(pattern)
		httpRequestsTotal.WithLabelValues(pattern, group, method, strconv.Itoa(sr.status)).Inc()
		httpRequestDuration.WithLabelValues(group, method).Observe(time.Since(start).Seconds())
		if action := lifecycleAction(method, pattern); action != "" {
			lifecycleRequests.WithLabelValues(action, outcome(sr.status)).Inc()
		}
	})
}

// routePattern returns the chi route pattern, or unmatchedRoute.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

// routeGroup maps a pattern to the resource it serves: config, presets,
// instances, ops (health, readiness, metrics), docs or unmatched.
func routeGroup(pattern string) string {
	switch {
	case pattern == unmatchedRoute:
		return unmatchedRoute
	case strings.HasPrefix(pattern, "/api/"):
		rest := strings.TrimPrefix(pattern, "/api/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
		}
		return rest
	case strings.HasPrefix(pattern, "/swagger"):
		return "docs"
	default:
		return "ops"
	}
}

func lifecycleAction(method, pattern string) string {
	if method != http.MethodPost {
		return ""
	}
	switch pattern {
	case "/api/config/apply":
		return "apply"
	case "/api/instances/stop-all":
		return "stop_all"
	}
	if strings.HasPrefix(pattern, "/api/instances/{id}/") {
		switch a := strings.TrimPrefix(pattern, "/api/instances/{id}/"); a {
		case "start", "stop", "restart":
			return a
		}
	}
	return ""
}

func outcome(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "rejected"
	default:
		return "ok"
	}
}
