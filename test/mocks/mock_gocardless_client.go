package mocks

import (
	"context"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockGoCardlessClient mocks ports.GoCardlessClient
type MockGoCardlessClient struct {
	mock.Mock
}

var _ ports.GoCardlessClient = (*MockGoCardlessClient)(nil)

func (m *MockGoCardlessClient) CreateBillingRequest(ctx context.Context, params *ports.CreateBillingRequestParams) (*domain.BillingRequest, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRequest), args.Error(1)
}

func (m *MockGoCardlessClient) GetBillingRequest(ctx context.Context, id string) (*domain.BillingRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRequest), args.Error(1)
}

func (m *MockGoCardlessClient) CreateBillingRequestFlow(ctx context.Context, params *ports.CreateBillingRequestFlowParams) (*domain.BillingRequestFlow, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BillingRequestFlow), args.Error(1)
}

func (m *MockGoCardlessClient) CreatePayment(ctx context.Context, params *ports.CreatePaymentParams) (*domain.Payment, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockGoCardlessClient) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockGoCardlessClient) CancelPayment(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockGoCardlessClient) RetryPayment(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockGoCardlessClient) GetMandate(ctx context.Context, id string) (*domain.Mandate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mandate), args.Error(1)
}

func (m *MockGoCardlessClient) UpdateMandate(ctx context.Context, id string, metadata map[string]string) (*domain.Mandate, error) {
	args := m.Called(ctx, id, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mandate), args.Error(1)
}

func (m *MockGoCardlessClient) CreateRefund(ctx context.Context, params *ports.CreateRefundParams) (*domain.Refund, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockGoCardlessClient) GetRefund(ctx context.Context, id string) (*domain.Refund, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Refund), args.Error(1)
}

func (m *MockGoCardlessClient) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockGoCardlessClient) UpdateCustomer(ctx context.Context, id string, metadata map[string]string) (*domain.Customer, error) {
	args := m.Called(ctx, id, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *MockGoCardlessClient) GetCustomerBankAccount(ctx context.Context, id string) (*domain.CustomerBankAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerBankAccount), args.Error(1)
}

func (m *MockGoCardlessClient) CancelSubscription(ctx context.Context, id string) (*domain.RemoteSubscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteSubscription), args.Error(1)
}

func (m *MockGoCardlessClient) ListCreditors(ctx context.Context) ([]domain.Creditor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Creditor), args.Error(1)
}
