package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout, payment, and webhook delivery outcomes.
type CheckoutMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkoutOutcome  *prometheus.CounterVec
	paymentOutcome   *prometheus.CounterVec
	webhookDelivery  *prometheus.CounterVec
}

// NewCheckoutMetrics registers the storefront metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"delivery_method"})
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	payment := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Payment verification results by outcome.",
	}, []string{"outcome"})
	webhook := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Outbound webhook deliveries by outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(duration, checkout, payment, webhook)
	return &CheckoutMetrics{
		checkoutDuration: duration,
		checkoutOutcome:  checkout,
		paymentOutcome:   payment,
		webhookDelivery:  webhook,
	}
}

// ObserveCheckout records the duration of one checkout attempt.
func (m *CheckoutMetrics) ObserveCheckout(deliveryMethod string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(deliveryMethod)).Observe(duration.Seconds())
}

// IncCheckout counts one checkout attempt by outcome.
func (m *CheckoutMetrics) IncCheckout(outcome string) {
	if m == nil || m.checkoutOutcome == nil {
		return
	}
	m.checkoutOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPayment counts one payment verification by outcome.
func (m *CheckoutMetrics) IncPayment(outcome string) {
	if m == nil || m.paymentOutcome == nil {
		return
	}
	m.paymentOutcome.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook counts one webhook delivery attempt by event type and outcome.
func (m *CheckoutMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhookDelivery == nil {
		return
	}
	m.webhookDelivery.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
