package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  chan kafka.Message
	committed []int64
	closed    bool
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeReader{messages: ch}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.messages:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type processorFunc func(ctx context.Context, payload []byte) error

func (f processorFunc) Process(ctx context.Context, payload []byte) error { return f(ctx, payload) }

func TestWebhookConsumer_CommitsOnlyProcessedMessages(t *testing.T) {
	reader := newFakeReader(
		kafka.Message{Offset: 1, Value: []byte("ok")},
		kafka.Message{Offset: 2, Value: []byte("bad")},
		kafka.Message{Offset: 3, Value: []byte("ok")},
	)

	var mu sync.Mutex
	var seen int
	processor := processorFunc(func(ctx context.Context, payload []byte) error {
		mu.Lock()
		seen++
		mu.Unlock()
		if string(payload) == "bad" {
			return errors.New("invalid payload")
		}
		return nil
	})

	consumer := newWebhookConsumer(reader, processor, 2, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.ElementsMatch(t, []int64{1, 3}, reader.commits())
	assert.Equal(t, 3, seen)
	assert.True(t, reader.closed)
}

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestWebhookProducer_Enqueue(t *testing.T) {
	t.Run("publishes keyed payload", func(t *testing.T) {
		writer := &fakeWriter{}
		producer := &WebhookProducer{w: writer, logger: zap.NewNop()}

		require.NoError(t, producer.Enqueue(context.Background(), "WB123", []byte(`{"events":[]}`)))
		require.Len(t, writer.messages, 1)
		assert.Equal(t, "WB123", string(writer.messages[0].Key))
		assert.Equal(t, `{"events":[]}`, string(writer.messages[0].Value))
	})

	t.Run("returns broker errors", func(t *testing.T) {
		producer := &WebhookProducer{w: &fakeWriter{err: errors.New("no brokers")}, logger: zap.NewNop()}
		err := producer.Enqueue(context.Background(), "WB123", []byte(`{}`))
		assert.Error(t, err)
	})
}
