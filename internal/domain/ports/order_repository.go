package ports

import (
	"context"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
)

// OrderRepository defines the interface for the local order mirror.
// A nil DBTX means "use the pool".
type OrderRepository interface {
	// GetByID retrieves an order, subscription or renewal by ID
	GetByID(ctx context.Context, db DBTX, id string) (*domain.Order, error)

	// Upsert mirrors a host order. Payment state owned by this service
	// (paid_at, transaction_id, flags) is never overwritten by the host copy.
	Upsert(ctx context.Context, tx DBTX, order *domain.Order) error

	// UpdateStatus sets the order status and bumps the version
	UpdateStatus(ctx context.Context, tx DBTX, id string, status domain.OrderStatus) error

	// PaymentComplete sets status when the current status is completable
	// (pending, on-hold, failed, cancelled, pre-ordered), keeping the first
	// paid date. Returns false and leaves the row untouched otherwise.
	PaymentComplete(ctx context.Context, tx DBTX, id, transactionID string, status domain.OrderStatus, paidAt time.Time) (bool, error)

	// ReduceStock flags stock as reduced once. Returns false when already reduced.
	ReduceStock(ctx context.Context, tx DBTX, id string) (bool, error)

	// SetTemporaryActivated sets or clears the temporary activation flag
	SetTemporaryActivated(ctx context.Context, tx DBTX, id string, active bool) error

	// SetSaveCustomerToken records the deferred save-token intent
	SetSaveCustomerToken(ctx context.Context, tx DBTX, id string, save bool) error

	// ListSubscriptionsForOrder returns the subscriptions an order starts or renews
	ListSubscriptionsForOrder(ctx context.Context, db DBTX, order *domain.Order) ([]*domain.Order, error)

	// GetLastOrderForSubscription returns the most recent parent or renewal order of a subscription
	GetLastOrderForSubscription(ctx context.Context, db DBTX, subscriptionID string) (*domain.Order, error)

	// GetByLegacySubscriptionID finds the order created for a pre-migration remote subscription
	GetByLegacySubscriptionID(ctx context.Context, db DBTX, remoteSubscriptionID string) (*domain.Order, error)
}

// ResourceStore persists per-order snapshots of remote resources
type ResourceStore interface {
	// Get returns the snapshot of a resource type for an order, or ErrResourceNotFound
	Get(ctx context.Context, db DBTX, orderID string, resourceType domain.ResourceType) (*domain.Snapshot, error)

	// Put overwrites the snapshot (last writer wins) and returns the new version
	Put(ctx context.Context, tx DBTX, snapshot *domain.Snapshot) (int, error)

	// PutIfVersion writes only if the stored version equals expectedVersion.
	// expectedVersion 0 inserts only when no snapshot exists. Returns ErrVersionConflict otherwise.
	PutIfVersion(ctx context.Context, tx DBTX, snapshot *domain.Snapshot, expectedVersion int) (int, error)

	// FindOrderByResource resolves a remote resource id to the order holding it.
	// Snapshots held by a subscription resolve to the subscription's last order.
	FindOrderByResource(ctx context.Context, db DBTX, resourceType domain.ResourceType, resourceID string) (*domain.Order, error)

	// ReplaceMandate rewrites every mandate snapshot referencing oldID in one statement
	ReplaceMandate(ctx context.Context, tx DBTX, oldID, newID string) (int64, error)

	// AddNote appends an order note
	AddNote(ctx context.Context, tx DBTX, orderID, note string) error

	// ListNotes returns the notes of an order, oldest first
	ListNotes(ctx context.Context, db DBTX, orderID string) ([]domain.OrderNote, error)

	// AppendEvent appends a processed webhook event to the order's audit log
	AppendEvent(ctx context.Context, tx DBTX, orderID string, event *domain.Event) error
}

// TokenRepository persists saved payment tokens
type TokenRepository interface {
	// Create stores a new token
	Create(ctx context.Context, tx DBTX, token *domain.PaymentToken) error

	// GetByID retrieves a token, or ErrTokenNotFound
	GetByID(ctx context.Context, db DBTX, id string) (*domain.PaymentToken, error)

	// ListByCustomer lists a customer's tokens for this gateway
	ListByCustomer(ctx context.Context, db DBTX, customerID string) ([]*domain.PaymentToken, error)

	// ExistsForCustomer reports whether the customer already saved the mandate
	ExistsForCustomer(ctx context.Context, db DBTX, customerID, mandateID string) (bool, error)

	// ReplaceMandate points every token holding oldID at newID
	ReplaceMandate(ctx context.Context, tx DBTX, oldID, newID string) (int64, error)

	// DeleteByMandate removes every token holding the mandate
	DeleteByMandate(ctx context.Context, tx DBTX, mandateID string) (int64, error)

	// Delete removes a token owned by the customer
	Delete(ctx context.Context, tx DBTX, customerID, id string) error
}

// CustomerRepository maps local customers to remote customer ids
type CustomerRepository interface {
	// GetRemoteCustomerID returns "" when no remote customer is associated
	GetRemoteCustomerID(ctx context.Context, db DBTX, customerID string) (string, error)

	// SetRemoteCustomerID associates a remote customer id
	SetRemoteCustomerID(ctx context.Context, tx DBTX, customerID, remoteCustomerID string) error
}

// StatusCheckScheduler persists deferred payment status checks
type StatusCheckScheduler interface {
	// Schedule upserts the check for an order
	Schedule(ctx context.Context, tx DBTX, orderID string, runAt time.Time) error

	// Unschedule removes any pending check for an order
	Unschedule(ctx context.Context, tx DBTX, orderID string) error

	// IsScheduled reports whether a check is pending for an order
	IsScheduled(ctx context.Context, db DBTX, orderID string) (bool, error)

	// ListDue returns checks whose run time has passed
	ListDue(ctx context.Context, db DBTX, now time.Time, limit int32) ([]domain.StatusCheck, error)
}
