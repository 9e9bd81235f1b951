package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout, webhook and order-transition outcomes.
type CheckoutMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
	transitions      *prometheus.CounterVec
}

// NewCheckoutMetrics registers the storefront metrics on the provided
// registerer. A nil registerer yields a no-op collector set.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Payment webhook deliveries by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions by target status and result.",
	}, []string{"to_status", "result"})
	reg.MustRegister(duration, checkouts, webhooks, transitions)
	return &CheckoutMetrics{
		checkoutDuration: duration,
		checkouts:        checkouts,
		webhookEvents:    webhooks,
		transitions:      transitions,
	}
}

// ObserveCheckout records one checkout attempt and its duration.
func (m *CheckoutMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncWebhook records one webhook delivery result.
func (m *CheckoutMetrics) IncWebhook(result string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(result).Inc()
}

// IncTransition records one order status transition attempt.
func (m *CheckoutMetrics) IncTransition(toStatus, result string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(toStatus, result).Inc()
}
