package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// WebhookProducer publishes verified webhook deliveries to Kafka.
// Writes are synchronous so the HTTP handler only acknowledges stored payloads.
type WebhookProducer struct {
	w       messageWriter
	brokers []string
	logger  *zap.Logger
}

var _ ports.WebhookQueue = (*WebhookProducer)(nil)

// NewWebhookProducer creates a producer for the webhook topic
func NewWebhookProducer(brokers []string, topic string, logger *zap.Logger) *WebhookProducer {
	return &WebhookProducer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		brokers: brokers,
		logger:  logger,
	}
}

// Enqueue implements ports.WebhookQueue
func (p *WebhookProducer) Enqueue(ctx context.Context, key string, payload []byte) error {
	err := p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Error("Failed to publish webhook payload",
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("publish webhook payload: %w", err)
	}
	return nil
}

// Ping dials the brokers until one answers. Used by the health check.
func (p *WebhookProducer) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		return fmt.Errorf("no kafka brokers configured")
	}
	return fmt.Errorf("dial kafka: %w", lastErr)
}

// Close flushes and closes the writer
func (p *WebhookProducer) Close() error {
	return p.w.Close()
}
