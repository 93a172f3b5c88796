package queue

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProcessor struct {
	mu       sync.Mutex
	payloads []string
	block    chan struct{}
}

func (p *recordingProcessor) Process(ctx context.Context, payload []byte) error {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, string(payload))
	return nil
}

func TestLocalQueue_ProcessesAndDrains(t *testing.T) {
	processor := &recordingProcessor{}
	q := NewLocalQueue(processor, 10, 2, zap.NewNop())
	q.Start(context.Background())

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(context.Background(), p, []byte(p)))
	}

	require.NoError(t, q.Stop(context.Background()))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, processor.payloads)

	err := q.Enqueue(context.Background(), "d", []byte("d"))
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestLocalQueue_Full(t *testing.T) {
	processor := &recordingProcessor{block: make(chan struct{})}
	q := NewLocalQueue(processor, 1, 1, zap.NewNop())

	// No workers yet, so the single slot fills up
	require.NoError(t, q.Enqueue(context.Background(), "a", []byte("a")))
	assert.ErrorIs(t, q.Enqueue(context.Background(), "b", []byte("b")), ErrQueueFull)

	q.Start(context.Background())
	close(processor.block)
	require.NoError(t, q.Stop(context.Background()))
	assert.Equal(t, []string{"a"}, processor.payloads)
}
