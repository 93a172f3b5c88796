package ports

import (
	"context"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/shopspring/decimal"
)

// SubscriptionPaymentStrategy is injected when recurring billing is enabled.
// Services check for nil before using it.
type SubscriptionPaymentStrategy interface {
	// SubscriptionsForOrder returns the subscriptions an order starts or renews
	SubscriptionsForOrder(ctx context.Context, order *domain.Order) ([]*domain.Order, error)

	// MirrorSnapshot copies a snapshot written for an order to its subscriptions
	MirrorSnapshot(ctx context.Context, tx DBTX, order *domain.Order, snapshot *domain.Snapshot) error

	// CancelSubscriptions cancels the subscriptions of an order, noting why
	CancelSubscriptions(ctx context.Context, order *domain.Order, note string) error

	// HandleLegacyEvent reconciles a pre-migration remote subscription event
	HandleLegacyEvent(ctx context.Context, event *domain.Event) error
}

// PreOrderStrategy is injected when pre-orders are enabled
type PreOrderStrategy interface {
	// ChargedUponRelease reports whether payment waits for the pre-order release
	ChargedUponRelease(order *domain.Order) bool

	// MarkPreOrdered reduces stock and moves the order to pre-ordered
	MarkPreOrdered(ctx context.Context, order *domain.Order) error
}

// PaymentCreator creates the payment that settles an order against a mandate.
// A nil amount charges the order total. A nil payment with a nil error means
// nothing had to be collected.
type PaymentCreator interface {
	CreatePayment(ctx context.Context, orderID, mandateID string, amount *decimal.Decimal) (*domain.Payment, error)
}
