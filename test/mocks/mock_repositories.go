package mocks

import (
	"context"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository mocks ports.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.Order, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Upsert(ctx context.Context, tx ports.DBTX, order *domain.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx ports.DBTX, id string, status domain.OrderStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockOrderRepository) PaymentComplete(ctx context.Context, tx ports.DBTX, id, transactionID string, status domain.OrderStatus, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, transactionID, status, paidAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) ReduceStock(ctx context.Context, tx ports.DBTX, id string) (bool, error) {
	args := m.Called(ctx, tx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SetTemporaryActivated(ctx context.Context, tx ports.DBTX, id string, active bool) error {
	args := m.Called(ctx, tx, id, active)
	return args.Error(0)
}

func (m *MockOrderRepository) SetSaveCustomerToken(ctx context.Context, tx ports.DBTX, id string, save bool) error {
	args := m.Called(ctx, tx, id, save)
	return args.Error(0)
}

func (m *MockOrderRepository) ListSubscriptionsForOrder(ctx context.Context, db ports.DBTX, order *domain.Order) ([]*domain.Order, error) {
	args := m.Called(ctx, db, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetLastOrderForSubscription(ctx context.Context, db ports.DBTX, subscriptionID string) (*domain.Order, error) {
	args := m.Called(ctx, db, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByLegacySubscriptionID(ctx context.Context, db ports.DBTX, remoteSubscriptionID string) (*domain.Order, error) {
	args := m.Called(ctx, db, remoteSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// MockResourceStore mocks ports.ResourceStore
type MockResourceStore struct {
	mock.Mock
}

func (m *MockResourceStore) Get(ctx context.Context, db ports.DBTX, orderID string, resourceType domain.ResourceType) (*domain.Snapshot, error) {
	args := m.Called(ctx, db, orderID, resourceType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *MockResourceStore) Put(ctx context.Context, tx ports.DBTX, snapshot *domain.Snapshot) (int, error) {
	args := m.Called(ctx, tx, snapshot)
	return args.Int(0), args.Error(1)
}

func (m *MockResourceStore) PutIfVersion(ctx context.Context, tx ports.DBTX, snapshot *domain.Snapshot, expectedVersion int) (int, error) {
	args := m.Called(ctx, tx, snapshot, expectedVersion)
	return args.Int(0), args.Error(1)
}

func (m *MockResourceStore) FindOrderByResource(ctx context.Context, db ports.DBTX, resourceType domain.ResourceType, resourceID string) (*domain.Order, error) {
	args := m.Called(ctx, db, resourceType, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockResourceStore) ReplaceMandate(ctx context.Context, tx ports.DBTX, oldID, newID string) (int64, error) {
	args := m.Called(ctx, tx, oldID, newID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResourceStore) AddNote(ctx context.Context, tx ports.DBTX, orderID, note string) error {
	args := m.Called(ctx, tx, orderID, note)
	return args.Error(0)
}

func (m *MockResourceStore) ListNotes(ctx context.Context, db ports.DBTX, orderID string) ([]domain.OrderNote, error) {
	args := m.Called(ctx, db, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OrderNote), args.Error(1)
}

func (m *MockResourceStore) AppendEvent(ctx context.Context, tx ports.DBTX, orderID string, event *domain.Event) error {
	args := m.Called(ctx, tx, orderID, event)
	return args.Error(0)
}

// MockTokenRepository mocks ports.TokenRepository
type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) Create(ctx context.Context, tx ports.DBTX, token *domain.PaymentToken) error {
	args := m.Called(ctx, tx, token)
	return args.Error(0)
}

func (m *MockTokenRepository) GetByID(ctx context.Context, db ports.DBTX, id string) (*domain.PaymentToken, error) {
	args := m.Called(ctx, db, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentToken), args.Error(1)
}

func (m *MockTokenRepository) ListByCustomer(ctx context.Context, db ports.DBTX, customerID string) ([]*domain.PaymentToken, error) {
	args := m.Called(ctx, db, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentToken), args.Error(1)
}

func (m *MockTokenRepository) ExistsForCustomer(ctx context.Context, db ports.DBTX, customerID, mandateID string) (bool, error) {
	args := m.Called(ctx, db, customerID, mandateID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) ReplaceMandate(ctx context.Context, tx ports.DBTX, oldID, newID string) (int64, error) {
	args := m.Called(ctx, tx, oldID, newID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) DeleteByMandate(ctx context.Context, tx ports.DBTX, mandateID string) (int64, error) {
	args := m.Called(ctx, tx, mandateID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) Delete(ctx context.Context, tx ports.DBTX, customerID, id string) error {
	args := m.Called(ctx, tx, customerID, id)
	return args.Error(0)
}

// MockCustomerRepository mocks ports.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) GetRemoteCustomerID(ctx context.Context, db ports.DBTX, customerID string) (string, error) {
	args := m.Called(ctx, db, customerID)
	return args.String(0), args.Error(1)
}

func (m *MockCustomerRepository) SetRemoteCustomerID(ctx context.Context, tx ports.DBTX, customerID, remoteCustomerID string) error {
	args := m.Called(ctx, tx, customerID, remoteCustomerID)
	return args.Error(0)
}

// MockStatusCheckScheduler mocks ports.StatusCheckScheduler
type MockStatusCheckScheduler struct {
	mock.Mock
}

func (m *MockStatusCheckScheduler) Schedule(ctx context.Context, tx ports.DBTX, orderID string, runAt time.Time) error {
	args := m.Called(ctx, tx, orderID, runAt)
	return args.Error(0)
}

func (m *MockStatusCheckScheduler) Unschedule(ctx context.Context, tx ports.DBTX, orderID string) error {
	args := m.Called(ctx, tx, orderID)
	return args.Error(0)
}

func (m *MockStatusCheckScheduler) IsScheduled(ctx context.Context, db ports.DBTX, orderID string) (bool, error) {
	args := m.Called(ctx, db, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStatusCheckScheduler) ListDue(ctx context.Context, db ports.DBTX, now time.Time, limit int32) ([]domain.StatusCheck, error) {
	args := m.Called(ctx, db, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusCheck), args.Error(1)
}
