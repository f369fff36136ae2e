package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	OrdersCreated    prometheus.Counter
	OrderFailures    *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	WebhookLatency   prometheus.Histogram
	StalePending     prometheus.Gauge
}

// NewMetrics creates the service metrics and registers them on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "The total number of orders created",
		}),
		OrderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_failures_total",
			Help:      "Rejected order creations by error code",
		}, []string{"code"}),
		CheckoutSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_sessions_total",
			Help:      "Checkout session requests by result",
		}, []string{"result"}),
		WebhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_events_total",
			Help:      "Payment webhook deliveries by event type and result",
		}, []string{"type", "result"}),
		WebhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_processing_seconds",
			Help:      "Time taken to reconcile a payment webhook",
			Buckets:   prometheus.DefBuckets,
		}),
		StalePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stale_pending_orders",
			Help:      "PENDING orders older than the checkout window at the last sweep",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.OrdersCreated, m.OrderFailures, m.CheckoutSessions, m.WebhookEvents, m.WebhookLatency, m.StalePending)
	}
	return m
}

// NewNop returns unregistered metrics, convenient for tests.
func NewNop() *Metrics {
	return NewMetrics("test", nil)
}
