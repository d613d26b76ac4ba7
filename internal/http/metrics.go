package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// apiMetrics holds the Prometheus instruments for the HTTP layer. Each
// server carries its own registry so tests can build servers freely.
type apiMetrics struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	rateLimited prometheus.Counter
}

func newAPIMetrics(registry *prometheus.Registry) *apiMetrics {
	factory := promauto.With(registry)

	registry.MustRegister(collectors.NewGoCollector())

	return &apiMetrics{
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cantina_http_requests_total",
			Help: "HTTP requests served, by route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cantina_http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		rateLimited: factory.NewCounter(prometheus.CounterOpts{
			Name: "cantina_http_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}),
	}
}

// observe records one served request. The route pattern keeps label
// cardinality bounded; raw paths would grow with every person id.
func (m *apiMetrics) observe(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}
