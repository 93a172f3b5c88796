// Package preorder charges pre-orders whose payment waits for product release.
package preorder

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// Strategy implements ports.PreOrderStrategy
type Strategy struct {
	db       ports.DBPort
	orders   ports.OrderRepository
	store    ports.ResourceStore
	payments ports.PaymentCreator
	logger   ports.Logger
}

var _ ports.PreOrderStrategy = (*Strategy)(nil)

func NewStrategy(db ports.DBPort, orders ports.OrderRepository, store ports.ResourceStore, logger ports.Logger) *Strategy {
	return &Strategy{
		db:     db,
		orders: orders,
		store:  store,
		logger: logger,
	}
}

// WithPayments sets the payment creator used on release
func (s *Strategy) WithPayments(payments ports.PaymentCreator) *Strategy {
	s.payments = payments
	return s
}

func (s *Strategy) ChargedUponRelease(order *domain.Order) bool {
	return order.ChargedUponRelease()
}

// MarkPreOrdered reduces stock and parks the order until release
func (s *Strategy) MarkPreOrdered(ctx context.Context, order *domain.Order) error {
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := s.orders.ReduceStock(ctx, tx, order.ID); err != nil {
			return fmt.Errorf("reduce stock: %w", err)
		}
		return s.orders.UpdateStatus(ctx, tx, order.ID, domain.OrderStatusPreOrdered)
	})
	if err != nil {
		return err
	}
	order.Status = domain.OrderStatusPreOrdered

	s.logger.Info("Order marked as pre-ordered",
		ports.String("order_id", order.ID))
	return nil
}

// Release charges a pre-order against its stored mandate. A failed payment
// moves the order to failed with a note.
func (s *Strategy) Release(ctx context.Context, orderID string) error {
	if s.payments == nil {
		return fmt.Errorf("pre-order payments are not configured")
	}

	order, err := s.orders.GetByID(ctx, nil, orderID)
	if err != nil {
		return err
	}
	if !order.IsPaidViaGateway() {
		return domain.ErrGatewayMismatch
	}
	if !order.ChargedUponRelease() || order.Status != domain.OrderStatusPreOrdered {
		s.logger.Info("Pre-order not awaiting release",
			ports.String("order_id", order.ID),
			ports.String("status", string(order.Status)))
		return nil
	}

	payErr := s.charge(ctx, order)
	if payErr == nil {
		return nil
	}

	msg := domain.UserMessage(payErr)
	if msg == "" {
		msg = payErr.Error()
	}
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, domain.OrderStatusFailed); err != nil {
			return err
		}
		return s.store.AddNote(ctx, tx, order.ID, fmt.Sprintf("Unable to create payment: %s", msg))
	})
	if err != nil {
		return fmt.Errorf("pre-order payment failed and failed to update order: %w", err)
	}

	s.logger.Error("Pre-order payment failed",
		ports.String("order_id", order.ID),
		ports.Err(payErr))
	return payErr
}

func (s *Strategy) charge(ctx context.Context, order *domain.Order) error {
	mandate, err := s.store.Get(ctx, nil, order.ID, domain.ResourceMandate)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return domain.NewDomainError(domain.ErrorCodeResourceNotFound, "Order does not have a mandate.")
		}
		return err
	}

	payment, err := s.payments.CreatePayment(ctx, order.ID, mandate.ResourceID, nil)
	if err != nil {
		return err
	}
	if payment != nil {
		s.logger.Info("Pre-order payment created",
			ports.String("order_id", order.ID),
			ports.String("payment_id", payment.ID))
	}
	return nil
}
