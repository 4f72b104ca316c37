package engine

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts request outcomes per endpoint. Registered once at server
// startup; nil Metrics disables collection.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	authFail *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mockfig",
			Name:      "requests_total",
			Help:      "Requests handled, by endpoint and status code.",
		}, []string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mockfig",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mockfig",
			Name:      "auth_failures_total",
			Help:      "Authentication failures, by required method.",
		}, []string{"method"}),
	}
	reg.MustRegister(m.requests, m.latency, m.authFail)
	return m
}

func (m *Metrics) observe(method, path string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, path).Observe(seconds)
}

func (m *Metrics) authFailure(methodName string) {
	if m == nil {
		return
	}
	m.authFail.WithLabelValues(methodName).Inc()
}
