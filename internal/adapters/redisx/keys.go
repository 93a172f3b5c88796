package redisx

import "time"

const (
	// Creditor scheme identifiers: gocardless:scheme_identifiers:{live|sandbox}
	KeySchemeIdentifiers = "gocardless:scheme_identifiers:%s"

	// Processed webhook events: dedup:webhook_event:{event_id}
	KeyWebhookEventDedup = "dedup:webhook_event:%s"
)

var (
	TTLSchemeIdentifiers = 24 * time.Hour
	TTLWebhookEventDedup = 48 * time.Hour
)
