package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BillingMetrics counts webhook, checkout and upload traffic.
type BillingMetrics interface {
	ObserveWebhook(provider, eventType, outcome string, elapsed time.Duration)
	IncCheckout(provider, outcome string)
	IncUpload(outcome string)
}

type billingMetrics struct {
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	uploads         *prometheus.CounterVec
}

// NewBillingMetrics registers the billing collectors on registry.
func NewBillingMetrics(registry prometheus.Registerer) BillingMetrics {
	factory := promauto.With(registry)

	return &billingMetrics{
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Webhook deliveries by provider, event type and outcome",
			},
			[]string{"provider", "event_type", "outcome"},
		),
		webhookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhook_processing_duration_seconds",
				Help:    "Time spent reconciling a verified webhook",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		checkouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_requests_total",
				Help: "Checkout attempts by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upload_requests_total",
				Help: "Document uploads by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *billingMetrics) ObserveWebhook(provider, eventType, outcome string, elapsed time.Duration) {
	m.webhookEvents.WithLabelValues(provider, eventType, outcome).Inc()
	m.webhookDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *billingMetrics) IncCheckout(provider, outcome string) {
	m.checkouts.WithLabelValues(provider, outcome).Inc()
}

func (m *billingMetrics) IncUpload(outcome string) {
	m.uploads.WithLabelValues(outcome).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveWebhook(string, string, string, time.Duration) {}
func (Nop) IncCheckout(string, string)                          {}
func (Nop) IncUpload(string)                                    {}
