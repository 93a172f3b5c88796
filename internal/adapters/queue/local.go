package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
	"github.com/kevin07696/gocardless-service/pkg/resilience"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when the in-process buffer cannot take another payload
var ErrQueueFull = errors.New("webhook queue is full")

// ErrQueueClosed is returned after Stop
var ErrQueueClosed = errors.New("webhook queue is closed")

type job struct {
	key     string
	payload []byte
}

// LocalQueue processes webhook payloads on an in-process worker pool.
// Payloads still buffered when the process exits are lost; use Kafka in production.
type LocalQueue struct {
	mu        sync.RWMutex
	jobs      chan job
	closed    bool
	processor ports.WebhookProcessor
	workers   int
	timeouts  resilience.Timeouts
	wg        sync.WaitGroup
	logger    *zap.Logger
}

var _ ports.WebhookQueue = (*LocalQueue)(nil)

// NewLocalQueue creates a queue with the given buffer size and worker count
func NewLocalQueue(processor ports.WebhookProcessor, buffer, workers int, logger *zap.Logger) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 100
	}
	return &LocalQueue{
		jobs:      make(chan job, buffer),
		processor: processor,
		workers:   workers,
		timeouts:  resilience.DefaultTimeouts(),
		logger:    logger,
	}
}

// Start launches the workers. Processing uses ctx, so cancelling it aborts in-flight work.
func (q *LocalQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for j := range q.jobs {
				q.process(ctx, id, j)
			}
		}(i)
	}
	q.logger.Info("Local webhook queue started", zap.Int("workers", q.workers))
}

func (q *LocalQueue) process(ctx context.Context, worker int, j job) {
	ctx, cancel := q.timeouts.WebhookContext(ctx)
	defer cancel()

	if err := q.processor.Process(ctx, j.payload); err != nil {
		observability.RecordWebhookDelivery("process_failed")
		q.logger.Error("Webhook payload processing failed",
			zap.Int("worker", worker),
			zap.String("key", j.key),
			zap.Error(err))
	}
}

// Enqueue implements ports.WebhookQueue
func (q *LocalQueue) Enqueue(ctx context.Context, key string, payload []byte) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job{key: key, payload: payload}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Stop refuses new payloads and waits for buffered ones to finish
func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
