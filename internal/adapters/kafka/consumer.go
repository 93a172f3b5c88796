package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"github.com/kevin07696/gocardless-service/pkg/resilience"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig configures the webhook consumer group
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	Workers int
}

// WebhookConsumer feeds queued webhook payloads to a processor using a worker pool.
// Offsets are committed only after the processor returns nil.
type WebhookConsumer struct {
	r         messageReader
	processor ports.WebhookProcessor
	workers   int
	timeouts  resilience.Timeouts
	logger    *zap.Logger
}

// NewWebhookConsumer creates a consumer group reader with manual commits
func NewWebhookConsumer(cfg ConsumerConfig, processor ports.WebhookProcessor, logger *zap.Logger) *WebhookConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newWebhookConsumer(r, processor, cfg.Workers, logger)
}

func newWebhookConsumer(r messageReader, processor ports.WebhookProcessor, workers int, logger *zap.Logger) *WebhookConsumer {
	if workers <= 0 {
		workers = 1
	}
	return &WebhookConsumer{
		r:         r,
		processor: processor,
		workers:   workers,
		timeouts:  resilience.DefaultTimeouts(),
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled or the reader fails
func (c *WebhookConsumer) Run(ctx context.Context) error {
	defer c.r.Close()

	jobs := make(chan kafka.Message, c.workers*4)
	var wg sync.WaitGroup

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for m := range jobs {
				c.handle(ctx, id, m)
			}
		}(i)
	}

	c.logger.Info("Webhook consumer started", zap.Int("workers", c.workers))

	err := c.dispatch(ctx, jobs)
	close(jobs)
	wg.Wait()

	c.logger.Info("Webhook consumer stopped")
	return err
}

func (c *WebhookConsumer) dispatch(ctx context.Context, jobs chan<- kafka.Message) error {
	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("Failed to fetch webhook message", zap.Error(err))
			return err
		}

		select {
		case jobs <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *WebhookConsumer) handle(ctx context.Context, worker int, m kafka.Message) {
	processCtx, cancel := c.timeouts.WebhookContext(ctx)
	defer cancel()

	if err := c.processor.Process(processCtx, m.Value); err != nil {
		observability.RecordWebhookDelivery("process_failed")
		c.logger.Error("Webhook payload processing failed",
			zap.Int("worker", worker),
			zap.String("key", string(m.Key)),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		return
	}

	if err := c.r.CommitMessages(ctx, m); err != nil {
		c.logger.Warn("Failed to commit webhook message",
			zap.Int64("offset", m.Offset),
			zap.Error(err))
	}
}
