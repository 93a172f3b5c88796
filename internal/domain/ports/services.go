package ports

import (
	"context"

	"github.com/kevin07696/gocardless-service/internal/domain"
)

// ResourceRecorder writes snapshots to an order and mirrors them to the
// subscriptions the order starts or renews
type ResourceRecorder interface {
	// Record overwrites the snapshot
	Record(ctx context.Context, tx DBTX, order *domain.Order, snapshot *domain.Snapshot) error

	// Link stores the snapshot only when the order holds none of that type yet.
	// Returns false when another flow linked one first.
	Link(ctx context.Context, tx DBTX, order *domain.Order, snapshot *domain.Snapshot) (bool, error)
}

// MandateResolver migrates and cleans up references to a mandate
type MandateResolver interface {
	// ReplaceMandate points every token and snapshot holding oldID at newID
	ReplaceMandate(ctx context.Context, oldID, newID string) error

	// SaveCustomerToken stores the mandate as a reusable payment token
	SaveCustomerToken(ctx context.Context, customerID string, mandate *domain.Mandate) error

	// RemoveTokens deletes every token backed by the mandate
	RemoveTokens(ctx context.Context, mandateID string) error
}

// PaymentHandler applies payment side effects to orders
type PaymentHandler interface {
	PaymentCreator

	// HandlePaymentCreation projects a created or fetched payment onto the order
	HandlePaymentCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit bool) error

	// LinkPaymentCreation claims the payment for the order and projects it in
	// one transaction. False means another flow already linked a payment.
	LinkPaymentCreation(ctx context.Context, order *domain.Order, payment *domain.Payment, directDebit bool) (bool, error)

	// OnMandateCreated continues a mandate-only flow by collecting the order total
	OnMandateCreated(ctx context.Context, orderID, mandateID string) error
}

// PaymentEventHandler applies payment and refund webhook events
type PaymentEventHandler interface {
	ApplyPaymentEvent(ctx context.Context, event *domain.Event) error
	ApplyRefundEvent(ctx context.Context, event *domain.Event) error
}

// BillingRequestReconciler applies billing request webhook events
type BillingRequestReconciler interface {
	ReconcileFulfilled(ctx context.Context, event *domain.Event) error
	HandleCancelled(ctx context.Context, event *domain.Event) error
}

// CheckoutTokens issues and verifies the token binding a browser completion to its order
type CheckoutTokens interface {
	Issue(orderID string) (string, error)
	Verify(token, orderID string) error
}
