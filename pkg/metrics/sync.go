package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

// SyncMetrics records cart sync round trips. A nil *SyncMetrics is a no-op.
type SyncMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	discarded *prometheus.CounterVec
	inflight  prometheus.Gauge
}

// NewSyncMetrics registers the cart sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer, namespace string) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_requests_total",
		Help:      "Cart API round trips by operation and outcome.",
	}, []string{"operation", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cart_request_duration_seconds",
		Help:      "Duration of cart API round trips in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_responses_discarded_total",
		Help:      "Cart mutation responses dropped because a newer one was already applied.",
	}, []string{"operation"})
	inflight := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cart_mutations_inflight",
		Help:      "Cart mutations currently awaiting a response.",
	})
	reg.MustRegister(requests, latency, discarded, inflight)
	return &SyncMetrics{
		requests:  requests,
		latency:   latency,
		discarded: discarded,
		inflight:  inflight,
	}
}

// Observe records one finished round trip.
func (m *SyncMetrics) Observe(operation, outcome string, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	op := normalizeLabel(operation)
	m.requests.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	m.latency.WithLabelValues(op).Observe(duration.Seconds())
}

// IncDiscarded counts a stale response that was not folded.
func (m *SyncMetrics) IncDiscarded(operation string) {
	if m == nil || m.discarded == nil {
		return
	}
	m.discarded.WithLabelValues(normalizeLabel(operation)).Inc()
}

// AddInflight moves the in-flight gauge by delta.
func (m *SyncMetrics) AddInflight(delta float64) {
	if m == nil || m.inflight == nil {
		return
	}
	m.inflight.Add(delta)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
