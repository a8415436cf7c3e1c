// Package metrics exposes Prometheus counters for issuance, verification,
// audit and throttling. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "beneficios"

// Metrics owns a private registry so tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	qrIssued      *prometheus.CounterVec
	verifications *prometheus.CounterVec
	auditFailures prometheus.Counter
	rateLimited   *prometheus.CounterVec
	feedClients   prometheus.Gauge
}

// New registers all collectors, including the Go runtime and process ones.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		qrIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qr_tokens_issued_total",
			Help:      "QR tokens handed out, by whether an existing token was reused.",
		}, []string{"reused"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification outcomes by credential kind and result.",
		}, []string{"kind", "result"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Verification audit events that could not be stored.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests refused by the rate limiter, by route.",
		}, []string{"route"}),
		feedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Connected live verification feed clients.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.qrIssued,
		m.verifications,
		m.auditFailures,
		m.rateLimited,
		m.feedClients,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// QRIssued counts one issuance.
func (m *Metrics) QRIssued(reused bool) {
	if m == nil {
		return
	}
	label := "false"
	if reused {
		label = "true"
	}
	m.qrIssued.WithLabelValues(label).Inc()
}

// Verification counts one verification outcome. kind is empty when neither
// credential format matched.
func (m *Metrics) Verification(kind, result string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "none"
	}
	m.verifications.WithLabelValues(kind, result).Inc()
}

// AuditFailed counts one lost audit event.
func (m *Metrics) AuditFailed(error) {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

// RateLimited counts one throttled request.
func (m *Metrics) RateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
}

// FeedClients tracks connected feed clients.
func (m *Metrics) FeedClients(delta int) {
	if m == nil {
		return
	}
	m.feedClients.Add(float64(delta))
}
