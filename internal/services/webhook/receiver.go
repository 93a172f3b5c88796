// Package webhook verifies GoCardless webhook deliveries and applies their
// events to local orders.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
)

// Config holds the webhook endpoint secret
type Config struct {
	Secret string
}

// Receiver verifies deliveries and hands them to the queue
type Receiver struct {
	cfg    Config
	queue  ports.WebhookQueue
	logger ports.Logger
}

// NewReceiver creates a receiver that verifies deliveries and queues them
func NewReceiver(cfg Config, queue ports.WebhookQueue, logger ports.Logger) *Receiver {
	return &Receiver{
		cfg:    cfg,
		queue:  queue,
		logger: logger,
	}
}

// Ingest checks the signature over the raw body, validates that the payload
// carries events and enqueues it unchanged. Nothing is processed inline.
func (r *Receiver) Ingest(ctx context.Context, body []byte, signature string) error {
	if !r.validSignature(body, signature) {
		observability.RecordWebhookDelivery("invalid_signature")
		r.logger.Warn("Webhook signature mismatch")
		return domain.ErrInvalidSignature
	}

	var payload domain.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		observability.RecordWebhookDelivery("invalid_payload")
		return domain.WrapError(domain.ErrorCodeWebhookInvalidPayload, "invalid JSON payload", err)
	}
	if len(payload.Events) == 0 {
		observability.RecordWebhookDelivery("invalid_payload")
		return domain.ErrInvalidPayload
	}

	key := payload.Meta.WebhookID
	if key == "" {
		key = uuid.NewString()
	}
	if err := r.queue.Enqueue(ctx, key, body); err != nil {
		observability.RecordWebhookDelivery("enqueue_failed")
		return fmt.Errorf("enqueue webhook: %w", err)
	}

	observability.RecordWebhookDelivery("accepted")
	r.logger.Info("Webhook accepted",
		ports.String("webhook_id", key),
		ports.Int("events", len(payload.Events)))
	return nil
}

func (r *Receiver) validSignature(body []byte, signature string) bool {
	if r.cfg.Secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, r.cfg.Secret)), []byte(signature))
}

// Sign returns the hex HMAC-SHA256 of body under secret
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// GenerateSecret returns a random secret suitable for a webhook endpoint
func GenerateSecret() (string, error) {
	buf := make([]byte, 36)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
