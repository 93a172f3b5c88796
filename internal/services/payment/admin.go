package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// RefundRequest describes an administrator refund. TotalRefunded includes
// this refund; zero means this is the first one.
type RefundRequest struct {
	OrderID       string
	Amount        decimal.Decimal
	TotalRefunded decimal.Decimal
	Reason        string
}

// CancelPayment cancels a payment that has not been submitted to the bank yet
func (s *Service) CancelPayment(ctx context.Context, orderID string) (string, error) {
	order, stored, err := s.adminPayment(ctx, orderID)
	if err != nil {
		return "", err
	}
	if domain.PaymentStatus(stored.Status) != domain.PaymentPendingSubmission {
		return "", domain.NewDomainError(domain.ErrorCodePaymentInvalidState,
			fmt.Sprintf("only payments pending submission can be cancelled, payment is %s", stored.Status))
	}

	payment, err := s.client.CancelPayment(ctx, stored.ResourceID)
	if err != nil {
		return "", domain.WrapError(domain.ErrorCodeRemoteAPI,
			fmt.Sprintf("Failed to cancel GoCardless payment in order #%s", order.Number), err)
	}

	if err := s.applyAdminAction(ctx, order, payment, domain.OrderStatusCancelled, "Cancelled GoCardless payment."); err != nil {
		return "", err
	}
	return fmt.Sprintf("GoCardless payment in order #%s is cancelled.", order.Number), nil
}

// RetryPayment asks GoCardless to retry a failed payment
func (s *Service) RetryPayment(ctx context.Context, orderID string) (string, error) {
	order, stored, err := s.adminPayment(ctx, orderID)
	if err != nil {
		return "", err
	}
	if domain.PaymentStatus(stored.Status) != domain.PaymentFailed {
		return "", domain.NewDomainError(domain.ErrorCodePaymentInvalidState,
			fmt.Sprintf("only failed payments can be retried, payment is %s", stored.Status))
	}

	payment, err := s.client.RetryPayment(ctx, stored.ResourceID)
	if err != nil {
		return "", domain.WrapError(domain.ErrorCodeRemoteAPI,
			fmt.Sprintf("Failed to retry GoCardless payment in order #%s", order.Number), err)
	}

	if err := s.applyAdminAction(ctx, order, payment, s.cfg.RetryStatus, "Retried GoCardless payment."); err != nil {
		return "", err
	}
	return fmt.Sprintf("Retried GoCardless payment in order #%s.", order.Number), nil
}

// Refund refunds part or all of the order payment. Remote failures are noted
// on the order as well as returned.
func (s *Service) Refund(ctx context.Context, req RefundRequest) (*domain.Refund, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.NewDomainError(domain.ErrorCodeValidationFailed, "refund amount must be positive")
	}

	order, err := s.orders.GetByID(ctx, nil, req.OrderID)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Get(ctx, nil, order.ID, domain.ResourcePayment)
	if err != nil && !errors.Is(err, domain.ErrResourceNotFound) {
		return nil, err
	}
	if stored == nil || stored.ResourceID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeResourceNotFound, fmt.Sprintf(
			"Unable to refund order #%s. Order does not have payment ID. Make sure payment has been created.", order.Number))
	}

	total := req.TotalRefunded
	if total.IsZero() {
		total = req.Amount
	}

	refund, err := s.client.CreateRefund(ctx, &ports.CreateRefundParams{
		PaymentID:               stored.ResourceID,
		Amount:                  domain.ToMinorUnits(req.Amount, order.Currency),
		TotalAmountConfirmation: domain.ToMinorUnits(total, order.Currency),
		Metadata: map[string]string{
			"order_id":    order.ID,
			"order_total": order.Total.StringFixed(domain.CurrencyDecimals(order.Currency)),
			"reason":      req.Reason,
		},
	})
	if err != nil {
		msg := domain.UserMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		if noteErr := s.store.AddNote(ctx, nil, order.ID, "Unable to refund via GoCardless: "+msg); noteErr != nil {
			s.logger.Error("Failed to add refund note", ports.String("order_id", order.ID), ports.Err(noteErr))
		}
		return nil, domain.WrapError(domain.ErrorCodeRemoteAPI, "Unable to refund via GoCardless", err)
	}
	if refund == nil || refund.ID == "" {
		_ = s.store.AddNote(ctx, nil, order.ID, "Unable to refund via GoCardless. GoCardless returns unexpected refund response.")
		return nil, domain.ErrUnexpectedResponse
	}

	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourceRefund, refund.ID, refund.Status, refund)
	if err != nil {
		return nil, fmt.Errorf("encode refund snapshot: %w", err)
	}

	currency := refund.Currency
	if currency == "" {
		currency = order.Currency
	}
	reason := req.Reason
	if reason == "" {
		reason = "No reason provided"
	}
	note := fmt.Sprintf("Refunded %s %s with refund ID %s and reference %s (%s)",
		domain.FromMinorUnits(refund.Amount, currency).StringFixed(domain.CurrencyDecimals(currency)),
		currency, refund.ID, refund.Reference, reason)

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.recorder.Record(ctx, tx, order, snapshot); err != nil {
			return err
		}
		return s.store.AddNote(ctx, tx, order.ID, note)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Refund created",
		ports.String("order_id", order.ID),
		ports.String("refund_id", refund.ID),
		ports.String("amount", req.Amount.String()))
	return refund, nil
}

func (s *Service) adminPayment(ctx context.Context, orderID string) (*domain.Order, *domain.Snapshot, error) {
	order, err := s.orders.GetByID(ctx, nil, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !order.IsPaidViaGateway() {
		return nil, nil, domain.ErrGatewayMismatch
	}

	stored, err := s.store.Get(ctx, nil, order.ID, domain.ResourcePayment)
	if err != nil {
		return nil, nil, err
	}
	return order, stored, nil
}

func (s *Service) applyAdminAction(ctx context.Context, order *domain.Order, payment *domain.Payment, status domain.OrderStatus, note string) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if payment != nil && payment.ID != "" {
			snapshot, err := domain.NewSnapshot(order.ID, domain.ResourcePayment, payment.ID, string(payment.Status), payment)
			if err != nil {
				return fmt.Errorf("encode payment snapshot: %w", err)
			}
			if err := s.recorder.Record(ctx, tx, order, snapshot); err != nil {
				return err
			}
		}
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return s.store.AddNote(ctx, tx, order.ID, note)
	})
}
