package metrics

import (
	"time"

	"github.com/go-verify-api/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	ExternalAttempts *prometheus.CounterVec
	ExternalLatency  *prometheus.HistogramVec
	Verifications    *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExternalAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_external_attempts_total",
			Help: "Upstream validation attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
		ExternalLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verify_external_attempt_duration_seconds",
			Help:    "Latency of single upstream validation attempts",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "verify_requests_total",
			Help: "Verification requests by kind and result",
		}, []string{"kind", "result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// ObserveAttempt records one upstream attempt.
func (m *Metrics) ObserveAttempt(kind domain.Kind, outcome string, elapsed time.Duration) {
	m.ExternalAttempts.WithLabelValues(string(kind), outcome).Inc()
	m.ExternalLatency.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// IncVerification counts one finished verification request.
func (m *Metrics) IncVerification(kind domain.Kind, result string) {
	m.Verifications.WithLabelValues(string(kind), result).Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
