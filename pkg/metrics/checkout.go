package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics records calls made to the remote cart, address and coupon services.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
	failure  *prometheus.CounterVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of remote gateway calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_request_failures_total",
		Help: "Failed remote gateway calls by classified category.",
	}, []string{"service", "operation", "category"})
	reg.MustRegister(duration, failure)
	return &GatewayMetrics{
		duration: duration,
		failure:  failure,
	}
}

// ObserveDuration records the duration of one gateway call.
func (g *GatewayMetrics) ObserveDuration(service, operation string, d time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	g.duration.WithLabelValues(normalizeLabel(service), normalizeLabel(operation)).Observe(d.Seconds())
}

// IncFailure counts a failed gateway call.
func (g *GatewayMetrics) IncFailure(service, operation, category string) {
	if g == nil || g.failure == nil {
		return
	}
	g.failure.WithLabelValues(normalizeLabel(service), normalizeLabel(operation), normalizeLabel(category)).Inc()
}

// CheckoutMetrics records flow-level events.
type CheckoutMetrics struct {
	guardRejected *prometheus.CounterVec
	transitions   *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	guardRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_mutation_rejected_total",
		Help: "Cart line mutations rejected because another one was in flight.",
	}, []string{"policy"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_transitions_total",
		Help: "Checkout stage transitions by outcome.",
	}, []string{"from", "to", "outcome"})
	reg.MustRegister(guardRejected, transitions)
	return &CheckoutMetrics{guardRejected: guardRejected, transitions: transitions}
}

// IncGuardRejected counts a mutation dropped by the line guard.
func (c *CheckoutMetrics) IncGuardRejected(policy string) {
	if c == nil || c.guardRejected == nil {
		return
	}
	c.guardRejected.WithLabelValues(normalizeLabel(policy)).Inc()
}

// IncTransition counts an attempted stage transition.
func (c *CheckoutMetrics) IncTransition(from, to, outcome string) {
	if c == nil || c.transitions == nil {
		return
	}
	c.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
