package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook results recorded in the audit table and the delivery counter.
const (
	WebhookResultPaid             = "paid"
	WebhookResultFailed           = "failed"
	WebhookResultReplay           = "replay"
	WebhookResultInvalidSignature = "invalid_signature"
	WebhookResultInvalidPayload   = "invalid_payload"
	WebhookResultNotFound         = "not_found"
	WebhookResultError            = "error"
)

var webhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "uzeed_billing_webhook_total",
	Help: "Khipu webhook deliveries by reconciliation result.",
}, []string{"result"})

var intentsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "uzeed_billing_intents_started_total",
	Help: "Payment intents opened with the provider, by purpose and outcome.",
}, []string{"purpose", "outcome"})
