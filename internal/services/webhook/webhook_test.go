package webhook_test

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/services/webhook"
	"github.com/kevin07696/gocardless-service/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "whsec-test"

func TestReceiver_Ingest(t *testing.T) {
	ctx := context.Background()
	body := []byte(`{"events":[{"id":"EV1","resource_type":"payments","action":"confirmed","links":{"payment":"PM1"}}],"meta":{"webhook_id":"WB1"}}`)

	t.Run("valid delivery is enqueued", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{Secret: secret}, queue, mocks.NewMockLogger())
		queue.On("Enqueue", mock.Anything, "WB1", body).Return(nil)

		require.NoError(t, r.Ingest(ctx, body, webhook.Sign(body, secret)))
		queue.AssertExpectations(t)
	})

	t.Run("wrong signature is never enqueued", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{Secret: secret}, queue, mocks.NewMockLogger())

		err := r.Ingest(ctx, body, webhook.Sign(body, "other-secret"))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tampered body is rejected", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{Secret: secret}, queue, mocks.NewMockLogger())
		sig := webhook.Sign(body, secret)
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-3] = 'X'

		assert.ErrorIs(t, r.Ingest(ctx, tampered, sig), domain.ErrInvalidSignature)
		queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unconfigured secret rejects everything", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{}, queue, mocks.NewMockLogger())

		assert.ErrorIs(t, r.Ingest(ctx, body, webhook.Sign(body, "")), domain.ErrInvalidSignature)
	})

	t.Run("payload without events is invalid", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{Secret: secret}, queue, mocks.NewMockLogger())
		empty := []byte(`{"events":[]}`)

		assert.ErrorIs(t, r.Ingest(ctx, empty, webhook.Sign(empty, secret)), domain.ErrInvalidPayload)
	})

	t.Run("malformed JSON is invalid", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{Secret: secret}, queue, mocks.NewMockLogger())
		broken := []byte(`{"events":`)

		assert.ErrorIs(t, r.Ingest(ctx, broken, webhook.Sign(broken, secret)), domain.ErrInvalidPayload)
	})

	t.Run("enqueue failure is returned", func(t *testing.T) {
		queue := new(mocks.MockWebhookQueue)
		r := webhook.NewReceiver(webhook.Config{Secret: secret}, queue, mocks.NewMockLogger())
		queue.On("Enqueue", mock.Anything, "WB1", body).Return(errors.New("broker down"))

		assert.ErrorContains(t, r.Ingest(ctx, body, webhook.Sign(body, secret)), "broker down")
	})
}

func TestGenerateSecret(t *testing.T) {
	a, err := webhook.GenerateSecret()
	require.NoError(t, err)
	b, err := webhook.GenerateSecret()
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(a)
	require.NoError(t, err)
	assert.Len(t, raw, 36)
	assert.NotEqual(t, a, b)
}

type dispatcherDeps struct {
	store         *mocks.MockResourceStore
	mandates      *mocks.MockMandateResolver
	payments      *mocks.MockPaymentEventHandler
	billing       *mocks.MockBillingRequestReconciler
	subscriptions *mocks.MockSubscriptionStrategy
	logger        *mocks.MockLogger
}

func newDispatcher() (*webhook.Dispatcher, *dispatcherDeps) {
	deps := &dispatcherDeps{
		store:         new(mocks.MockResourceStore),
		mandates:      new(mocks.MockMandateResolver),
		payments:      new(mocks.MockPaymentEventHandler),
		billing:       new(mocks.MockBillingRequestReconciler),
		subscriptions: new(mocks.MockSubscriptionStrategy),
		logger:        mocks.NewMockLogger(),
	}
	d := webhook.NewDispatcher(deps.store, deps.mandates, deps.payments, deps.billing, deps.logger).
		WithSubscriptions(deps.subscriptions)
	return d, deps
}

func eventOf(resourceType, action string) interface{} {
	return mock.MatchedBy(func(e *domain.Event) bool {
		return e.ResourceType == resourceType && e.Action == action
	})
}

func TestDispatcher_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("mandate replacement migrates references", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[{"id":"EV1","resource_type":"mandates","action":"replaced","links":{"mandate":"MD1","new_mandate":"MD2"}}]}`)
		deps.mandates.On("ReplaceMandate", mock.Anything, "MD1", "MD2").Return(nil)
		deps.store.On("FindOrderByResource", mock.Anything, nil, domain.ResourceMandate, "MD2").
			Return(&domain.Order{ID: "42"}, nil)
		deps.store.On("AppendEvent", mock.Anything, nil, "42", mock.MatchedBy(func(e *domain.Event) bool {
			return e.ID == "EV1"
		})).Return(nil)

		require.NoError(t, d.Process(ctx, payload))
		deps.mandates.AssertExpectations(t)
		deps.store.AssertExpectations(t)
	})

	t.Run("mandate removal drops saved tokens", func(t *testing.T) {
		for _, action := range []string{"cancelled", "failed", "expired", "blocked"} {
			d, deps := newDispatcher()
			payload := []byte(`{"events":[{"id":"EV1","resource_type":"mandates","action":"` + action + `","links":{"mandate":"MD1"}}]}`)
			deps.mandates.On("RemoveTokens", mock.Anything, "MD1").Return(nil).Once()
			deps.store.On("FindOrderByResource", mock.Anything, nil, domain.ResourceMandate, "MD1").
				Return(nil, domain.ErrOrderNotFound)

			require.NoError(t, d.Process(ctx, payload), action)
			deps.mandates.AssertExpectations(t)
		}
	})

	t.Run("payments and refunds go to the projector", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[
			{"id":"EV1","resource_type":"payments","action":"failed","links":{"payment":"PM1"},"details":{"will_attempt_retry":true}},
			{"id":"EV2","resource_type":"refunds","action":"paid","links":{"refund":"RF1"}}
		]}`)
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
			return e.ID == "EV1" && e.Details.WillAttemptRetry
		})).Return(nil)
		deps.payments.On("ApplyRefundEvent", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
			return e.ID == "EV2"
		})).Return(nil)

		require.NoError(t, d.Process(ctx, payload))
		deps.payments.AssertExpectations(t)
	})

	t.Run("every payment action reaches the projector", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[
			{"id":"EV1","resource_type":"payments","action":"submitted","links":{"payment":"PM1"}},
			{"id":"EV2","resource_type":"payments","action":"created","links":{"payment":"PM1"}},
			{"id":"EV3","resource_type":"payments","action":"customer_approval_denied","links":{"payment":"PM1"}}
		]}`)
		for _, action := range []string{"submitted", "created", "customer_approval_denied"} {
			deps.payments.On("ApplyPaymentEvent", mock.Anything, eventOf("payments", action)).Return(nil).Once()
		}

		require.NoError(t, d.Process(ctx, payload))
		deps.payments.AssertExpectations(t)
		assert.Empty(t, deps.logger.InfoCalls)
	})

	t.Run("billing request events reach the reconciler", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[
			{"id":"EV1","resource_type":"billing_requests","action":"fulfilled","links":{"billing_request":"BRQ1"}},
			{"id":"EV2","resource_type":"billing_requests","action":"cancelled","links":{"billing_request":"BRQ2"}}
		]}`)
		deps.billing.On("ReconcileFulfilled", mock.Anything, eventOf("billing_requests", "fulfilled")).Return(nil)
		deps.billing.On("HandleCancelled", mock.Anything, eventOf("billing_requests", "cancelled")).Return(nil)
		deps.store.On("FindOrderByResource", mock.Anything, nil, domain.ResourceBillingRequest, "BRQ1").
			Return(&domain.Order{ID: "42"}, nil)
		deps.store.On("FindOrderByResource", mock.Anything, nil, domain.ResourceBillingRequest, "BRQ2").
			Return(&domain.Order{ID: "43"}, nil)
		deps.store.On("AppendEvent", mock.Anything, nil, mock.Anything, mock.Anything).Return(nil).Twice()

		require.NoError(t, d.Process(ctx, payload))
		deps.billing.AssertExpectations(t)
		deps.store.AssertExpectations(t)
	})

	t.Run("legacy subscription events go to the strategy", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[{"id":"EV1","resource_type":"subscriptions","action":"payment_created","links":{"subscription":"SB1"}}]}`)
		deps.subscriptions.On("HandleLegacyEvent", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
			return e.Links.Subscription == "SB1"
		})).Return(nil)

		require.NoError(t, d.Process(ctx, payload))
		deps.subscriptions.AssertExpectations(t)
	})

	t.Run("legacy events without subscriptions are ignored", func(t *testing.T) {
		deps := &dispatcherDeps{store: new(mocks.MockResourceStore), logger: mocks.NewMockLogger()}
		d := webhook.NewDispatcher(deps.store, nil, nil, nil, deps.logger)
		payload := []byte(`{"events":[{"id":"EV1","resource_type":"subscriptions","action":"cancelled","links":{"subscription":"SB1"}}]}`)

		require.NoError(t, d.Process(ctx, payload))
	})

	t.Run("unknown events are logged and dropped", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[{"id":"EV1","resource_type":"creditors","action":"updated"}]}`)

		require.NoError(t, d.Process(ctx, payload))
		assert.Len(t, deps.logger.InfoCalls, 1)
		assert.Empty(t, deps.logger.ErrorCalls)
	})

	t.Run("one failing event does not stop the batch", func(t *testing.T) {
		d, deps := newDispatcher()
		payload := []byte(`{"events":[
			{"id":"EV1","resource_type":"payments","action":"confirmed","links":{"payment":"PM1"}},
			{"id":"EV2","resource_type":"payments","action":"paid_out","links":{"payment":"PM2"}}
		]}`)
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
			return e.ID == "EV1"
		})).Return(errors.New("gocardless timeout"))
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.MatchedBy(func(e *domain.Event) bool {
			return e.ID == "EV2"
		})).Return(nil)

		require.NoError(t, d.Process(ctx, payload))
		deps.payments.AssertNumberOfCalls(t, "ApplyPaymentEvent", 2)
		assert.Len(t, deps.logger.ErrorCalls, 1)
	})

	t.Run("unreadable payload is an error", func(t *testing.T) {
		d, _ := newDispatcher()
		assert.ErrorIs(t, d.Process(ctx, []byte("not json")), domain.ErrInvalidPayload)
	})
}

func TestDispatcher_Deduplication(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"events":[{"id":"EV1","resource_type":"payments","action":"confirmed","links":{"payment":"PM1"}}]}`)

	t.Run("processed event is skipped", func(t *testing.T) {
		d, deps := newDispatcher()
		dedup := new(mocks.MockEventDeduplicator)
		d.WithDeduplicator(dedup)
		dedup.On("Processed", mock.Anything, "EV1").Return(true, nil)

		require.NoError(t, d.Process(ctx, payload))
		deps.payments.AssertNotCalled(t, "ApplyPaymentEvent", mock.Anything, mock.Anything)
		dedup.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	})

	t.Run("event is marked only after it was handled", func(t *testing.T) {
		d, deps := newDispatcher()
		dedup := new(mocks.MockEventDeduplicator)
		d.WithDeduplicator(dedup)
		var handled bool
		dedup.On("Processed", mock.Anything, "EV1").Return(false, nil)
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			handled = true
			dedup.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
		}).Return(nil)
		dedup.On("MarkProcessed", mock.Anything, "EV1").Run(func(mock.Arguments) {
			assert.True(t, handled)
		}).Return(nil).Once()

		require.NoError(t, d.Process(ctx, payload))
		dedup.AssertExpectations(t)
	})

	t.Run("failed event stays eligible for redelivery", func(t *testing.T) {
		d, deps := newDispatcher()
		dedup := new(mocks.MockEventDeduplicator)
		d.WithDeduplicator(dedup)
		dedup.On("Processed", mock.Anything, "EV1").Return(false, nil)
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.Anything).Return(nil).Once()
		dedup.On("MarkProcessed", mock.Anything, "EV1").Return(nil).Once()

		require.NoError(t, d.Process(ctx, payload))
		dedup.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)

		require.NoError(t, d.Process(ctx, payload))
		deps.payments.AssertNumberOfCalls(t, "ApplyPaymentEvent", 2)
		dedup.AssertExpectations(t)
	})

	t.Run("cache outage still processes the event", func(t *testing.T) {
		d, deps := newDispatcher()
		dedup := new(mocks.MockEventDeduplicator)
		d.WithDeduplicator(dedup)
		dedup.On("Processed", mock.Anything, "EV1").Return(false, errors.New("redis down"))
		dedup.On("MarkProcessed", mock.Anything, "EV1").Return(errors.New("redis down"))
		deps.payments.On("ApplyPaymentEvent", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, d.Process(ctx, payload))
		deps.payments.AssertExpectations(t)
	})
}
