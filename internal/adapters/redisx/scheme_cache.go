package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/redis/go-redis/v9"
)

// SchemeIdentifierCache stores the creditor's scheme identifiers in Redis
type SchemeIdentifierCache struct {
	client *redis.Client
	key    string
}

var _ ports.SchemeIdentifierCache = (*SchemeIdentifierCache)(nil)

// NewSchemeIdentifierCache creates a cache scoped to the API environment
func NewSchemeIdentifierCache(client *redis.Client, sandbox bool) *SchemeIdentifierCache {
	env := "live"
	if sandbox {
		env = "sandbox"
	}
	return &SchemeIdentifierCache{
		client: client,
		key:    fmt.Sprintf(KeySchemeIdentifiers, env),
	}
}

// Get returns ok=false on a cache miss
func (c *SchemeIdentifierCache) Get(ctx context.Context) ([]domain.SchemeIdentifier, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get scheme identifiers: %w", err)
	}

	var ids []domain.SchemeIdentifier
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false, fmt.Errorf("decode scheme identifiers: %w", err)
	}
	return ids, true, nil
}

// Set stores the identifiers for ttl
func (c *SchemeIdentifierCache) Set(ctx context.Context, ids []domain.SchemeIdentifier, ttl time.Duration) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode scheme identifiers: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set scheme identifiers: %w", err)
	}
	return nil
}
