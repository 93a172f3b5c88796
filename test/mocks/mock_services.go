package mocks

import (
	"context"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockResourceRecorder mocks ports.ResourceRecorder
type MockResourceRecorder struct {
	mock.Mock
}

func (m *MockResourceRecorder) Record(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) error {
	args := m.Called(ctx, tx, order, snapshot)
	return args.Error(0)
}

func (m *MockResourceRecorder) Link(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) (bool, error) {
	args := m.Called(ctx, tx, order, snapshot)
	return args.Bool(0), args.Error(1)
}

// MockMandateResolver mocks ports.MandateResolver
type MockMandateResolver struct {
	mock.Mock
}

func (m *MockMandateResolver) ReplaceMandate(ctx context.Context, oldID, newID string) error {
	args := m.Called(ctx, oldID, newID)
	return args.Error(0)
}

func (m *MockMandateResolver) SaveCustomerToken(ctx context.Context, customerID string, mandate *domain.Mandate) error {
	args := m.Called(ctx, customerID, mandate)
	return args.Error(0)
}

func (m *MockMandateResolver) RemoveTokens(ctx context.Context, mandateID string) error {
	args := m.Called(ctx, mandateID)
	return args.Error(0)
}

// MockPaymentHandler mocks ports.PaymentHandler
type MockPaymentHandler struct {
	mock.Mock
}

func (m *MockPaymentHandler) CreatePayment(ctx context.Context, orderID, mandateID string, amount *decimal.Decimal) (*domain.Payment, error) {
	args := m.Called(ctx, orderID, mandateID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentHandler) HandlePaymentCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit bool) error {
	args := m.Called(ctx, order, payment, directDebit)
	return args.Error(0)
}

func (m *MockPaymentHandler) LinkPaymentCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit bool) (bool, error) {
	args := m.Called(ctx, order, payment, directDebit)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentHandler) OnMandateCreated(ctx context.Context, orderID, mandateID string) error {
	args := m.Called(ctx, orderID, mandateID)
	return args.Error(0)
}

// MockPaymentEventHandler mocks ports.PaymentEventHandler
type MockPaymentEventHandler struct {
	mock.Mock
}

func (m *MockPaymentEventHandler) ApplyPaymentEvent(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPaymentEventHandler) ApplyRefundEvent(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockBillingRequestReconciler mocks ports.BillingRequestReconciler
type MockBillingRequestReconciler struct {
	mock.Mock
}

func (m *MockBillingRequestReconciler) ReconcileFulfilled(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockBillingRequestReconciler) HandleCancelled(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockSubscriptionStrategy mocks ports.SubscriptionPaymentStrategy
type MockSubscriptionStrategy struct {
	mock.Mock
}

func (m *MockSubscriptionStrategy) SubscriptionsForOrder(ctx context.Context, order *domain.Order) ([]*domain.Order, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockSubscriptionStrategy) MirrorSnapshot(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) error {
	args := m.Called(ctx, tx, order, snapshot)
	return args.Error(0)
}

func (m *MockSubscriptionStrategy) CancelSubscriptions(ctx context.Context, order *domain.Order, note string) error {
	args := m.Called(ctx, order, note)
	return args.Error(0)
}

func (m *MockSubscriptionStrategy) HandleLegacyEvent(ctx context.Context, event *domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockPreOrderStrategy mocks ports.PreOrderStrategy
type MockPreOrderStrategy struct {
	mock.Mock
}

func (m *MockPreOrderStrategy) ChargedUponRelease(order *domain.Order) bool {
	args := m.Called(order)
	return args.Bool(0)
}

func (m *MockPreOrderStrategy) MarkPreOrdered(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// MockCheckoutTokens mocks ports.CheckoutTokens
type MockCheckoutTokens struct {
	mock.Mock
}

func (m *MockCheckoutTokens) Issue(orderID string) (string, error) {
	args := m.Called(orderID)
	return args.String(0), args.Error(1)
}

func (m *MockCheckoutTokens) Verify(token, orderID string) error {
	args := m.Called(token, orderID)
	return args.Error(0)
}

// MockSchemeIdentifierCache mocks ports.SchemeIdentifierCache
type MockSchemeIdentifierCache struct {
	mock.Mock
}

func (m *MockSchemeIdentifierCache) Get(ctx context.Context) ([]domain.SchemeIdentifier, bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]domain.SchemeIdentifier), args.Bool(1), args.Error(2)
}

func (m *MockSchemeIdentifierCache) Set(ctx context.Context, ids []domain.SchemeIdentifier, ttl time.Duration) error {
	args := m.Called(ctx, ids, ttl)
	return args.Error(0)
}

// MockWebhookQueue mocks ports.WebhookQueue
type MockWebhookQueue struct {
	mock.Mock
}

func (m *MockWebhookQueue) Enqueue(ctx context.Context, key string, payload []byte) error {
	args := m.Called(ctx, key, payload)
	return args.Error(0)
}

// MockEventDeduplicator mocks ports.EventDeduplicator
type MockEventDeduplicator struct {
	mock.Mock
}

func (m *MockEventDeduplicator) Processed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEventDeduplicator) MarkProcessed(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}
