// Package subscription keeps subscriptions and their renewal orders in step
// with GoCardless mandates and payments.
package subscription

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/shopspring/decimal"
)

// Strategy implements ports.SubscriptionPaymentStrategy
type Strategy struct {
	db       ports.DBPort
	orders   ports.OrderRepository
	store    ports.ResourceStore
	client   ports.GoCardlessClient
	payments ports.PaymentCreator
	logger   ports.Logger
}

var _ ports.SubscriptionPaymentStrategy = (*Strategy)(nil)

// NewStrategy creates a subscription strategy. Renewal payments need
// WithPayments as well.
func NewStrategy(
	db ports.DBPort,
	orders ports.OrderRepository,
	store ports.ResourceStore,
	client ports.GoCardlessClient,
	logger ports.Logger,
) *Strategy {
	return &Strategy{
		db:     db,
		orders: orders,
		store:  store,
		client: client,
		logger: logger,
	}
}

// WithPayments sets the payment creator used for renewals
func (s *Strategy) WithPayments(payments ports.PaymentCreator) *Strategy {
	s.payments = payments
	return s
}

// SubscriptionsForOrder returns the subscriptions an order starts or renews
func (s *Strategy) SubscriptionsForOrder(ctx context.Context, order *domain.Order) ([]*domain.Order, error) {
	if !order.IsSubscriptionOrRenewal() {
		return nil, nil
	}
	return s.orders.ListSubscriptionsForOrder(ctx, nil, order)
}

// MirrorSnapshot stores a copy of the snapshot on every subscription of the order
func (s *Strategy) MirrorSnapshot(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) error {
	if !order.IsSubscriptionOrRenewal() {
		return nil
	}

	subscriptions, err := s.orders.ListSubscriptionsForOrder(ctx, tx, order)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	for _, sub := range subscriptions {
		mirrored := *snapshot
		mirrored.OrderID = sub.ID
		mirrored.Version = 0
		if _, err := s.store.Put(ctx, tx, &mirrored); err != nil {
			return fmt.Errorf("store %s snapshot on subscription %s: %w", snapshot.Type, sub.ID, err)
		}
	}
	return nil
}

// CancelSubscriptions cancels every subscription of the order that is not
// already cancelled
func (s *Strategy) CancelSubscriptions(ctx context.Context, order *domain.Order, note string) error {
	subscriptions, err := s.SubscriptionsForOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	return s.cancel(ctx, subscriptions, note)
}

func (s *Strategy) cancel(ctx context.Context, subscriptions []*domain.Order, note string) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, sub := range subscriptions {
			if sub.Status == domain.OrderStatusCancelled {
				continue
			}
			if err := s.orders.UpdateStatus(ctx, tx, sub.ID, domain.OrderStatusCancelled); err != nil {
				return fmt.Errorf("cancel subscription %s: %w", sub.ID, err)
			}
			if note != "" {
				if err := s.store.AddNote(ctx, tx, sub.ID, note); err != nil {
					return err
				}
			}
			s.logger.Info("Subscription cancelled",
				ports.String("subscription_id", sub.ID))
		}
		return nil
	})
}

// ProcessRenewal charges a renewal order against the mandate stored on it.
// A failure moves the order to failed with a note and is returned as well.
func (s *Strategy) ProcessRenewal(ctx context.Context, orderID string, amount decimal.Decimal) error {
	if s.payments == nil {
		return fmt.Errorf("renewal payments are not configured")
	}

	order, err := s.orders.GetByID(ctx, nil, orderID)
	if err != nil {
		return err
	}

	s.logger.Info("Creating subscription payment",
		ports.String("order_id", order.ID),
		ports.String("order_number", order.Number),
		ports.String("amount", amount.String()))

	_, payErr := s.chargeStoredMandate(ctx, order, &amount)
	if payErr == nil {
		return nil
	}

	msg := domain.UserMessage(payErr)
	if msg == "" {
		msg = payErr.Error()
	}
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, domain.OrderStatusFailed); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return s.store.AddNote(ctx, tx, order.ID, fmt.Sprintf("Failed to create payment via GoCardless: %s", msg))
	})
	if err != nil {
		return fmt.Errorf("renewal payment failed and failed to update order: %w", err)
	}

	s.logger.Error("Renewal payment failed",
		ports.String("order_id", order.ID),
		ports.Err(payErr))
	return payErr
}

func (s *Strategy) chargeStoredMandate(ctx context.Context, order *domain.Order, amount *decimal.Decimal) (*domain.Payment, error) {
	mandate, err := s.store.Get(ctx, nil, order.ID, domain.ResourceMandate)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return nil, domain.NewDomainError(domain.ErrorCodeResourceNotFound, "Order does not have a mandate.")
		}
		return nil, err
	}
	return s.payments.CreatePayment(ctx, order.ID, mandate.ResourceID, amount)
}

// UpdateFailingPaymentMethod copies the mandate a renewal was paid with onto
// its subscription, replacing the mandate that failed
func (s *Strategy) UpdateFailingPaymentMethod(ctx context.Context, subscriptionID, renewalOrderID string) error {
	mandate, err := s.store.Get(ctx, nil, renewalOrderID, domain.ResourceMandate)
	if err != nil {
		return fmt.Errorf("load renewal mandate: %w", err)
	}

	copied := *mandate
	copied.OrderID = subscriptionID
	copied.Version = 0
	if _, err := s.store.Put(ctx, nil, &copied); err != nil {
		return fmt.Errorf("store subscription mandate: %w", err)
	}

	s.logger.Info("Subscription payment method updated",
		ports.String("subscription_id", subscriptionID),
		ports.String("mandate_id", mandate.ResourceID))
	return nil
}

// SetMandate stores a manually entered mandate on a subscription
func (s *Strategy) SetMandate(ctx context.Context, subscriptionID, mandateID string) error {
	if err := domain.ValidateMandateID(mandateID); err != nil {
		return err
	}

	sub, err := s.orders.GetByID(ctx, nil, subscriptionID)
	if err != nil {
		return err
	}
	if !sub.IsSubscription() {
		return domain.NewDomainError(domain.ErrorCodeValidationFailed, "order is not a subscription")
	}

	snapshot, err := domain.NewSnapshot(sub.ID, domain.ResourceMandate, mandateID, "", nil)
	if err != nil {
		return err
	}
	if _, err := s.store.Put(ctx, nil, snapshot); err != nil {
		return fmt.Errorf("store subscription mandate: %w", err)
	}
	return nil
}

// HandleLegacyEvent migrates subscriptions created while GoCardless still ran
// the schedule. A created payment moves the schedule to the host by
// cancelling it remotely and keeping its mandate. A remote cancellation
// cancels the subscriptions only when no mandate was captured.
func (s *Strategy) HandleLegacyEvent(ctx context.Context, event *domain.Event) error {
	remoteID := event.Links.Subscription
	if remoteID == "" {
		return nil
	}

	order, err := s.orders.GetByLegacySubscriptionID(ctx, nil, remoteID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Info("No order for legacy subscription",
				ports.String("subscription_id", remoteID))
			return nil
		}
		return err
	}

	all, err := s.orders.ListSubscriptionsForOrder(ctx, nil, order)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	active := make([]*domain.Order, 0, len(all))
	for _, sub := range all {
		if sub.Status == domain.OrderStatusActive {
			active = append(active, sub)
		}
	}
	if len(active) == 0 {
		return nil
	}

	s.logger.Info("Handling legacy subscription event",
		ports.String("action", event.Action),
		ports.String("order_id", order.ID))

	switch event.Kind() {
	case domain.EventSubscriptionPaymentCreated:
		return s.adoptLegacyMandate(ctx, order, active, remoteID)
	case domain.EventSubscriptionCancelled:
		mandate, err := s.store.Get(ctx, nil, order.ID, domain.ResourceMandate)
		if err != nil && !errors.Is(err, domain.ErrResourceNotFound) {
			return err
		}
		if mandate != nil && mandate.ResourceID != "" {
			return nil
		}
		return s.cancel(ctx, active, "GoCardless subscription cancelled.")
	default:
		return nil
	}
}

func (s *Strategy) adoptLegacyMandate(ctx context.Context, order *domain.Order, subscriptions []*domain.Order, remoteID string) error {
	remote, err := s.client.CancelSubscription(ctx, remoteID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to cancel GoCardless subscription", err)
	}
	if remote.Links.Mandate == "" {
		return domain.NewDomainError(domain.ErrorCodeUnexpectedResponse,
			"Unexpected GoCardless subscription response. Missing mandate information.")
	}

	mandate, err := s.client.GetMandate(ctx, remote.Links.Mandate)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to retrieve mandate.", err)
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		targets := append([]string{order.ID}, idsOf(subscriptions)...)
		for _, id := range targets {
			snapshot, err := domain.NewSnapshot(id, domain.ResourceMandate, mandate.ID, "", mandate)
			if err != nil {
				return err
			}
			if _, err := s.store.Put(ctx, tx, snapshot); err != nil {
				return fmt.Errorf("store mandate on %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Legacy subscription moved to mandate",
		ports.String("subscription_id", remoteID),
		ports.String("mandate_id", mandate.ID),
		ports.Int("subscriptions", len(subscriptions)))
	return nil
}

func idsOf(orders []*domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
