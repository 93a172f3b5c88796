package redisx

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests; they skip unless a Redis server is reachable
func setupTestRedis(t *testing.T) *Config {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	return &Config{Addr: addr, DB: 15, Timeout: 500 * time.Millisecond}
}

func TestSchemeIdentifierCache(t *testing.T) {
	cfg := setupTestRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, *cfg)
	if err != nil {
		t.Skipf("Could not connect to test redis: %v", err)
	}
	defer client.Close()

	cache := NewSchemeIdentifierCache(client, true)
	require.NoError(t, client.Del(ctx, cache.key).Err())

	_, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ids := []domain.SchemeIdentifier{{Scheme: domain.SchemeFasterPayments, Status: "active"}}
	require.NoError(t, cache.Set(ctx, ids, time.Minute))

	got, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ids, got)

	ttl, err := client.TTL(ctx, cache.key).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 5)
}

func TestEventDeduplicator(t *testing.T) {
	cfg := setupTestRedis(t)
	ctx := context.Background()

	client, err := NewClient(ctx, *cfg)
	if err != nil {
		t.Skipf("Could not connect to test redis: %v", err)
	}
	defer client.Close()

	dedup := NewEventDeduplicator(client, 0)
	eventID := "EV" + uuid.NewString()

	seen, err := dedup.Processed(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	// checking alone must not hide the event from a redelivery
	seen, err = dedup.Processed(ctx, eventID)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, dedup.MarkProcessed(ctx, eventID))
	seen, err = dedup.Processed(ctx, eventID)
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := client.TTL(ctx, fmt.Sprintf(KeyWebhookEventDedup, eventID)).Result()
	require.NoError(t, err)
	assert.InDelta(t, TTLWebhookEventDedup.Seconds(), ttl.Seconds(), 5)
}

func TestNewSchemeIdentifierCache_KeyPerEnvironment(t *testing.T) {
	assert.Equal(t, "gocardless:scheme_identifiers:sandbox", NewSchemeIdentifierCache(nil, true).key)
	assert.Equal(t, "gocardless:scheme_identifiers:live", NewSchemeIdentifierCache(nil, false).key)
}
