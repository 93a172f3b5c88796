package ports

import (
	"context"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
)

// SchemeIdentifierCache caches the creditor's scheme identifiers
type SchemeIdentifierCache interface {
	// Get returns ok=false on a cache miss
	Get(ctx context.Context) (ids []domain.SchemeIdentifier, ok bool, err error)
	Set(ctx context.Context, ids []domain.SchemeIdentifier, ttl time.Duration) error
}

// WebhookQueue hands verified webhook payloads to background processing
type WebhookQueue interface {
	Enqueue(ctx context.Context, key string, payload []byte) error
}

// WebhookProcessor consumes queued webhook payloads
type WebhookProcessor interface {
	Process(ctx context.Context, payload []byte) error
}

// EventDeduplicator suppresses redelivered webhook events. Ids are marked
// only after their handler succeeded, so a crash mid-handling leaves the
// event eligible for redelivery.
type EventDeduplicator interface {
	// Processed reports whether the event id was already handled
	Processed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed records a successfully handled event id
	MarkProcessed(ctx context.Context, eventID string) error
}
