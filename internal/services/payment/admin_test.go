package payment_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/kevin07696/gocardless-service/internal/adapters/gocardless"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/internal/services/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_CancelPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels payment pending submission", func(t *testing.T) {
		svc, deps := newService(t)
		order := pendingOrder("25.00")
		order.Status = domain.OrderStatusOnHold
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(order, nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(storedPayment(domain.PaymentPendingSubmission), nil)
		deps.client.On("CancelPayment", mock.Anything, "PM1").Return(remotePayment("PM1", domain.PaymentCancelled, "MD1"), nil)
		deps.recorder.On("Record", mock.Anything, mock.Anything, order, mock.Anything).Return(nil)
		deps.orders.On("UpdateStatus", mock.Anything, mock.Anything, "100", domain.OrderStatusCancelled).Return(nil)
		deps.store.On("AddNote", mock.Anything, mock.Anything, "100", "Cancelled GoCardless payment.").Return(nil)

		notice, err := svc.CancelPayment(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, "GoCardless payment in order #100 is cancelled.", notice)
		deps.orders.AssertExpectations(t)
	})

	t.Run("submitted payment cannot be cancelled", func(t *testing.T) {
		svc, deps := newService(t)
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(pendingOrder("25.00"), nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(storedPayment(domain.PaymentSubmitted), nil)

		_, err := svc.CancelPayment(ctx, "100")
		assert.ErrorIs(t, err, domain.ErrPaymentInvalidState)
		deps.client.AssertNotCalled(t, "CancelPayment", mock.Anything, mock.Anything)
	})
}

func TestService_RetryPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("retries failed payment", func(t *testing.T) {
		svc, deps := newService(t)
		order := pendingOrder("25.00")
		order.Status = domain.OrderStatusFailed
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(order, nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(storedPayment(domain.PaymentFailed), nil)
		deps.client.On("RetryPayment", mock.Anything, "PM1").Return(remotePayment("PM1", domain.PaymentPendingSubmission, "MD1"), nil)
		deps.recorder.On("Record", mock.Anything, mock.Anything, order, mock.Anything).Return(nil)
		deps.orders.On("UpdateStatus", mock.Anything, mock.Anything, "100", domain.OrderStatusOnHold).Return(nil)
		deps.store.On("AddNote", mock.Anything, mock.Anything, "100", "Retried GoCardless payment.").Return(nil)

		notice, err := svc.RetryPayment(ctx, "100")
		require.NoError(t, err)
		assert.Equal(t, "Retried GoCardless payment in order #100.", notice)
	})

	t.Run("remote failure is reported with order number", func(t *testing.T) {
		svc, deps := newService(t)
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(pendingOrder("25.00"), nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(storedPayment(domain.PaymentFailed), nil)
		deps.client.On("RetryPayment", mock.Anything, "PM1").Return(nil, &gocardless.APIError{
			StatusCode: http.StatusUnprocessableEntity, Code: 422, Message: "Mandate is cancelled",
		})

		_, err := svc.RetryPayment(ctx, "100")
		require.Error(t, err)
		assert.Equal(t, "Failed to retry GoCardless payment in order #100: Mandate is cancelled", domain.UserMessage(err))
		deps.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("refund is recorded and noted", func(t *testing.T) {
		svc, deps := newService(t)
		order := pendingOrder("25.00")
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(order, nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(storedPayment(domain.PaymentPaidOut), nil)
		deps.client.On("CreateRefund", mock.Anything, mock.MatchedBy(func(p *ports.CreateRefundParams) bool {
			return p.PaymentID == "PM1" &&
				p.Amount == 500 &&
				p.TotalAmountConfirmation == 1500 &&
				p.Metadata["order_id"] == "100" &&
				p.Metadata["order_total"] == "25.00" &&
				p.Metadata["reason"] == "Damaged"
		})).Return(&domain.Refund{ID: "RF1", Amount: 500, Currency: "USD", Reference: "REF-1"}, nil)
		deps.recorder.On("Record", mock.Anything, mock.Anything, order, mock.MatchedBy(func(s *domain.Snapshot) bool {
			return s.Type == domain.ResourceRefund && s.ResourceID == "RF1"
		})).Return(nil)
		deps.store.On("AddNote", mock.Anything, mock.Anything, "100",
			"Refunded 5.00 USD with refund ID RF1 and reference REF-1 (Damaged)").Return(nil)

		refund, err := svc.Refund(ctx, payment.RefundRequest{
			OrderID:       "100",
			Amount:        decimal.RequireFromString("5.00"),
			TotalRefunded: decimal.RequireFromString("15.00"),
			Reason:        "Damaged",
		})
		require.NoError(t, err)
		assert.Equal(t, "RF1", refund.ID)
		deps.store.AssertExpectations(t)
	})

	t.Run("order without payment cannot be refunded", func(t *testing.T) {
		svc, deps := newService(t)
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(pendingOrder("25.00"), nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(nil, domain.ErrResourceNotFound)

		_, err := svc.Refund(ctx, payment.RefundRequest{OrderID: "100", Amount: decimal.NewFromInt(5)})
		require.Error(t, err)
		assert.Contains(t, domain.UserMessage(err), "Order does not have payment ID")
		deps.client.AssertNotCalled(t, "CreateRefund", mock.Anything, mock.Anything)
	})

	t.Run("remote failure adds a note", func(t *testing.T) {
		svc, deps := newService(t)
		deps.orders.On("GetByID", mock.Anything, mock.Anything, "100").Return(pendingOrder("25.00"), nil)
		deps.store.On("Get", mock.Anything, mock.Anything, "100", domain.ResourcePayment).Return(storedPayment(domain.PaymentPaidOut), nil)
		deps.client.On("CreateRefund", mock.Anything, mock.Anything).Return(nil, &gocardless.APIError{
			StatusCode: http.StatusForbidden, Code: 403, Message: "Refund endpoint disabled",
		})
		deps.store.On("AddNote", mock.Anything, mock.Anything, "100", "Unable to refund via GoCardless: Refund endpoint disabled").Return(nil)

		_, err := svc.Refund(ctx, payment.RefundRequest{OrderID: "100", Amount: decimal.NewFromInt(5)})
		require.Error(t, err)
		deps.store.AssertExpectations(t)
	})
}
