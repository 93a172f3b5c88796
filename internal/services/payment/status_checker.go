package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
)

const statusCheckNote = "GoCardless payment status check: "

// Status check outcomes, also used as metric labels
const (
	CheckSkipped     = "skipped"
	CheckCleared     = "cleared"
	CheckRescheduled = "rescheduled"
	CheckUpdated     = "updated"
	CheckFailed      = "error"
)

// RunDueStatusChecks runs every status check whose time has come. One failing
// order does not stop the others; the number of checks run is returned.
func (s *Service) RunDueStatusChecks(ctx context.Context, limit int32) (int, error) {
	due, err := s.scheduler.ListDue(ctx, nil, s.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list due status checks: %w", err)
	}

	ran := 0
	for _, check := range due {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		outcome, err := s.CheckPaymentStatus(ctx, check.OrderID)
		if err != nil {
			s.logger.Error("Payment status check failed",
				ports.String("order_id", check.OrderID),
				ports.Int("attempts", check.Attempts),
				ports.Err(err))
			outcome = CheckFailed
		}
		observability.RecordStatusCheck(outcome)
		ran++
	}
	return ran, nil
}

// CheckPaymentStatus reconciles a temporarily activated order with its
// payment when no webhook arrived. Orders that are no longer temporarily
// activated are left alone.
func (s *Service) CheckPaymentStatus(ctx context.Context, orderID string) (string, error) {
	order, err := s.orders.GetByID(ctx, nil, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return CheckSkipped, s.scheduler.Unschedule(ctx, nil, orderID)
		}
		return "", err
	}

	if !order.IsActiveForStatusCheck() || !order.TemporaryActivated {
		return CheckSkipped, s.scheduler.Unschedule(ctx, nil, order.ID)
	}

	stored, err := s.store.Get(ctx, nil, order.ID, domain.ResourcePayment)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return CheckSkipped, s.scheduler.Unschedule(ctx, nil, order.ID)
		}
		return "", err
	}

	// Already settled by a webhook
	if domain.PaymentStatus(stored.Status).IsEndStatus() {
		return CheckCleared, s.clearTemporaryActivation(ctx, order.ID)
	}

	payment, err := s.client.GetPayment(ctx, stored.ResourceID)
	if err != nil {
		if schedErr := s.scheduler.Schedule(ctx, nil, order.ID, s.now().Add(domain.StatusCheckDelay)); schedErr != nil {
			s.logger.Error("Could not reschedule status check", ports.String("order_id", order.ID), ports.Err(schedErr))
		}
		return "", domain.WrapError(domain.ErrorCodeRemoteAPI, "Unable to fetch payment", err)
	}

	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourcePayment, payment.ID, string(payment.Status), payment)
	if err != nil {
		return "", fmt.Errorf("encode payment snapshot: %w", err)
	}

	var status domain.OrderStatus
	complete := false
	switch payment.Status {
	case domain.PaymentPaidOut, domain.PaymentConfirmed:
		complete = true
	case domain.PaymentFailed:
		status = domain.OrderStatusFailed
	case domain.PaymentCancelled:
		status = domain.OrderStatusCancelled
	case domain.PaymentCustomerApprovalDenied, domain.PaymentChargedBack:
		status = domain.OrderStatusOnHold
	}

	outcome := CheckUpdated
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		switch {
		case complete:
			if _, err := s.orders.PaymentComplete(ctx, tx, order.ID, payment.ID, domain.OrderStatusProcessing, s.now()); err != nil {
				return fmt.Errorf("complete payment: %w", err)
			}
		case status != "":
			if err := s.orders.UpdateStatus(ctx, tx, order.ID, status); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			if err := s.store.AddNote(ctx, tx, order.ID, statusCheckNote+string(payment.Status)); err != nil {
				return fmt.Errorf("add order note: %w", err)
			}
		case payment.Status.IsInProgress():
			outcome = CheckRescheduled
			if err := s.scheduler.Schedule(ctx, tx, order.ID, s.now().Add(domain.StatusCheckDelay)); err != nil {
				return fmt.Errorf("reschedule status check: %w", err)
			}
		}

		if payment.Status.IsEndStatus() {
			if err := s.orders.SetTemporaryActivated(ctx, tx, order.ID, false); err != nil {
				return fmt.Errorf("clear temporary activation: %w", err)
			}
		}
		if !payment.Status.IsInProgress() {
			if err := s.scheduler.Unschedule(ctx, tx, order.ID); err != nil {
				return fmt.Errorf("unschedule status check: %w", err)
			}
		}

		return s.recorder.Record(ctx, tx, order, snapshot)
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("Payment status checked",
		ports.String("order_id", order.ID),
		ports.String("payment_id", payment.ID),
		ports.String("payment_status", string(payment.Status)),
		ports.String("outcome", outcome))
	return outcome, nil
}

func (s *Service) clearTemporaryActivation(ctx context.Context, orderID string) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.SetTemporaryActivated(ctx, tx, orderID, false); err != nil {
			return fmt.Errorf("clear temporary activation: %w", err)
		}
		return s.scheduler.Unschedule(ctx, tx, orderID)
	})
}
