package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote API metrics
	gocardlessRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gocardless_requests_total",
		Help: "Total number of GoCardless API requests",
	}, []string{
		"operation", // create_payment, get_billing_request, ...
		"outcome",   // success, api_error, network_error, circuit_open
	})

	gocardlessRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gocardless_request_duration_seconds",
		Help:    "Duration of GoCardless API requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	// Webhook metrics
	webhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Webhook deliveries received, by verification outcome",
	}, []string{
		"outcome", // accepted, invalid_signature, invalid_payload, enqueue_failed
	})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed_total",
		Help: "Webhook events processed, by resource type, action and status",
	}, []string{"resource_type", "action", "status"})

	// Reconciliation metrics
	paymentsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Payments created or linked, by remote status",
	}, []string{"status"})

	mandateReplacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mandate_replacements_total",
		Help: "Mandate replacements applied locally",
	})

	statusChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_checks_total",
		Help: "Deferred payment status checks run, by outcome",
	}, []string{"outcome"})
)

// RecordGoCardlessRequest records a remote API call
func RecordGoCardlessRequest(operation, outcome string, duration float64) {
	gocardlessRequestsTotal.WithLabelValues(operation, outcome).Inc()
	gocardlessRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordWebhookDelivery records the outcome of webhook intake
func RecordWebhookDelivery(outcome string) {
	webhookDeliveriesTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhookEvent records a processed webhook event
func RecordWebhookEvent(resourceType, action, status string) {
	webhookEventsTotal.WithLabelValues(resourceType, action, status).Inc()
}

// RecordPaymentCreated records a payment linked to an order
func RecordPaymentCreated(status string) {
	paymentsCreatedTotal.WithLabelValues(status).Inc()
}

// RecordMandateReplacement records a local mandate migration
func RecordMandateReplacement() {
	mandateReplacementsTotal.Inc()
}

// RecordStatusCheck records a deferred status check
func RecordStatusCheck(outcome string) {
	statusChecksTotal.WithLabelValues(outcome).Inc()
}
