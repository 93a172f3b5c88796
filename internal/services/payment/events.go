package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// ApplyPaymentEvent projects a payments webhook event onto the order that
// owns the payment. Actions that settle the payment move the order status and
// are terminal for the status check; every action refreshes the snapshot and
// lands in the event log.
func (s *Service) ApplyPaymentEvent(ctx context.Context, event *domain.Event) error {
	paymentID := event.Links.Payment
	order, err := s.store.FindOrderByResource(ctx, nil, domain.ResourcePayment, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("No order found for payment",
				ports.String("payment_id", paymentID),
				ports.String("event_id", event.ID))
			return nil
		}
		return err
	}
	if !order.IsPaidViaGateway() {
		s.logger.Warn("Order is not paid via GoCardless",
			ports.String("order_id", order.ID),
			ports.String("payment_method", order.PaymentMethod))
		return domain.ErrGatewayMismatch
	}

	kind := event.Kind()
	var status domain.OrderStatus
	complete, transition := false, true
	switch kind {
	case domain.EventPaymentPaidOut, domain.EventPaymentConfirmed:
		complete = true
	case domain.EventPaymentFailed:
		status = domain.OrderStatusFailed
		if event.Details.WillAttemptRetry {
			status = s.cfg.RetryStatus
		}
	case domain.EventPaymentCancelled:
		status = domain.OrderStatusCancelled
	case domain.EventPaymentChargedBack, domain.EventPaymentChargebackSettled:
		status = domain.OrderStatusOnHold
	default:
		transition = false
	}

	// Fetch outside the transaction; a failed fetch keeps the old snapshot
	var snapshot *domain.Snapshot
	if payment, err := s.client.GetPayment(ctx, paymentID); err != nil {
		s.logger.Warn("Could not refresh payment snapshot",
			ports.String("payment_id", paymentID),
			ports.Err(err))
	} else if snapshot, err = domain.NewSnapshot(order.ID, domain.ResourcePayment, payment.ID, string(payment.Status), payment); err != nil {
		return fmt.Errorf("encode payment snapshot: %w", err)
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if transition {
			if err := s.transition(ctx, tx, order.ID, paymentID, complete, status, event.Details.Description); err != nil {
				return err
			}
		}

		if snapshot != nil {
			if err := s.recorder.Record(ctx, tx, order, snapshot); err != nil {
				return err
			}
		}
		return s.store.AppendEvent(ctx, tx, order.ID, event)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Applied payment event",
		ports.String("order_id", order.ID),
		ports.String("payment_id", paymentID),
		ports.String("event", kind.String()),
		ports.String("status", string(status)))

	if transition && event.Details.Cause == domain.CauseMandateCancelled && order.IsRenewal() && s.subscriptions != nil {
		if err := s.subscriptions.CancelSubscriptions(ctx, order, event.Details.Description); err != nil {
			return fmt.Errorf("cancel subscriptions: %w", err)
		}
	}
	return nil
}

func (s *Service) transition(ctx context.Context, tx pgx.Tx, orderID, paymentID string, complete bool, status domain.OrderStatus, note string) error {
	if complete {
		if _, err := s.orders.PaymentComplete(ctx, tx, orderID, paymentID, domain.OrderStatusProcessing, s.now()); err != nil {
			return fmt.Errorf("complete payment: %w", err)
		}
	} else {
		if err := s.orders.UpdateStatus(ctx, tx, orderID, status); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if note != "" {
			if err := s.store.AddNote(ctx, tx, orderID, note); err != nil {
				return fmt.Errorf("add order note: %w", err)
			}
		}
	}

	if err := s.scheduler.Unschedule(ctx, tx, orderID); err != nil {
		return fmt.Errorf("unschedule status check: %w", err)
	}
	if err := s.orders.SetTemporaryActivated(ctx, tx, orderID, false); err != nil {
		return fmt.Errorf("clear temporary activation: %w", err)
	}
	return nil
}

// ApplyRefundEvent refreshes the refund snapshot of the order that issued it
func (s *Service) ApplyRefundEvent(ctx context.Context, event *domain.Event) error {
	refundID := event.Links.Refund
	order, err := s.store.FindOrderByResource(ctx, nil, domain.ResourceRefund, refundID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("No order found for refund",
				ports.String("refund_id", refundID),
				ports.String("event_id", event.ID))
			return nil
		}
		return err
	}

	refund, err := s.client.GetRefund(ctx, refundID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Unable to fetch refund", err)
	}
	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourceRefund, refund.ID, refund.Status, refund)
	if err != nil {
		return fmt.Errorf("encode refund snapshot: %w", err)
	}

	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.recorder.Record(ctx, tx, order, snapshot); err != nil {
			return err
		}
		return s.store.AppendEvent(ctx, tx, order.ID, event)
	})
}
