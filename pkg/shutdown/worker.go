package shutdown

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// BackgroundWorker runs a long-lived loop, such as a queue consumer, until
// Shutdown cancels its context
type BackgroundWorker struct {
	name   string
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewBackgroundWorker(name string, logger *zap.Logger) *BackgroundWorker {
	return &BackgroundWorker{name: name, logger: logger}
}

// Start runs work in a goroutine. work must return once ctx is cancelled.
// A worker is started at most once.
func (bw *BackgroundWorker) Start(work func(ctx context.Context)) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	bw.cancel = cancel
	bw.done = make(chan struct{})

	go func() {
		defer close(bw.done)
		bw.logger.Info("Background worker started", zap.String("worker", bw.name))
		work(ctx)
		bw.logger.Info("Background worker stopped", zap.String("worker", bw.name))
	}()
}

// Shutdown cancels the worker and waits for it to return, or for ctx to expire
func (bw *BackgroundWorker) Shutdown(ctx context.Context) error {
	bw.mu.Lock()
	cancel, done := bw.cancel, bw.done
	bw.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bw.logger.Warn("Background worker did not stop in time", zap.String("worker", bw.name))
		return ctx.Err()
	}
}
