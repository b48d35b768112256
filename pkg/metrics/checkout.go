package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout submissions. A nil *CheckoutMetrics is a no-op.
type CheckoutMetrics struct {
	submissions *prometheus.CounterVec
	duration    prometheus.Histogram
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer, namespace string) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_submissions_total",
		Help:      "Checkout submissions by payment mode and outcome.",
	}, []string{"payment_mode", "outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_submit_duration_seconds",
		Help:      "Duration of checkout submissions in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(submissions, duration)
	return &CheckoutMetrics{submissions: submissions, duration: duration}
}

// ObserveSubmit records a submission that reached the network.
func (m *CheckoutMetrics) ObserveSubmit(paymentMode, outcome string, d time.Duration) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(paymentMode), normalizeLabel(outcome)).Inc()
	m.duration.Observe(d.Seconds())
}
