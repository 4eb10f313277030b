package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	postureScore    prometheus.Gauge
	threatLevel     *prometheus.GaugeVec
	guardDecisions  *prometheus.CounterVec
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seletto_http_requests_total",
		Help: "Number of HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "seletto_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	posture := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seletto_security_posture_score",
		Help: "Current security posture score (0-100).",
	})
	threat := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "seletto_security_threat_level",
		Help: "Current threat level, one-hot per level label.",
	}, []string{"level"})
	guard := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seletto_guard_decisions_total",
		Help: "Access guard decisions by verdict.",
	}, []string{"verdict"})
	registry.MustRegister(requests, duration, posture, threat, guard)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		postureScore:    posture,
		threatLevel:     threat,
		guardDecisions:  guard,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// SetPosture publishes the latest posture score and threat level.
func (m *Metrics) SetPosture(score int, level string) {
	if m == nil {
		return
	}
	m.postureScore.Set(float64(score))
	for _, l := range []string{"low", "medium", "high", "critical"} {
		v := 0.0
		if l == level {
			v = 1.0
		}
		m.threatLevel.WithLabelValues(l).Set(v)
	}
}

// CountGuardDecision tallies an access guard verdict (allow, deny, pending).
func (m *Metrics) CountGuardDecision(verdict string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(verdict).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
