package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const (
	CheckoutOutcomeSuccess         = "success"
	CheckoutOutcomeEmptyCart       = "empty_cart"
	CheckoutOutcomeBookUnavailable = "book_unavailable"
	CheckoutOutcomeError           = "error"
)

// CheckoutMetrics tracks cart-to-order conversions.
type CheckoutMetrics struct {
	outcomes *prometheus.CounterVec
	revenue  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_revenue_total",
		Help: "Sum of order totals created through checkout.",
	})
	reg.MustRegister(outcomes, revenue)
	return &CheckoutMetrics{outcomes: outcomes, revenue: revenue}
}

// IncOutcome increments the counter for the given outcome.
func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// AddRevenue adds an order total to the revenue counter.
func (c *CheckoutMetrics) AddRevenue(total decimal.Decimal) {
	if c == nil || c.revenue == nil || total.IsNegative() {
		return
	}
	c.revenue.Add(total.InexactFloat64())
}
