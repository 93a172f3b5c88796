package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/redis/go-redis/v9"
)

// EventDeduplicator remembers webhook event ids that were already processed
type EventDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.EventDeduplicator = (*EventDeduplicator)(nil)

// NewEventDeduplicator creates a Redis backed deduplicator. Marks expire
// after ttl, or TTLWebhookEventDedup when ttl is zero.
func NewEventDeduplicator(client *redis.Client, ttl time.Duration) *EventDeduplicator {
	if ttl <= 0 {
		ttl = TTLWebhookEventDedup
	}
	return &EventDeduplicator{client: client, ttl: ttl}
}

// Processed reports whether the event id was marked after a successful run
func (d *EventDeduplicator) Processed(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, fmt.Sprintf(KeyWebhookEventDedup, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("check webhook event: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records a handled event id until the ttl runs out
func (d *EventDeduplicator) MarkProcessed(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, fmt.Sprintf(KeyWebhookEventDedup, eventID), 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("mark webhook event: %w", err)
	}
	return nil
}
