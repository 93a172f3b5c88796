// Package resource stores remote resource snapshots against orders.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

// Recorder implements ports.ResourceRecorder. When a subscription strategy is
// configured every write is mirrored to the subscriptions of the order.
type Recorder struct {
	store         ports.ResourceStore
	subscriptions ports.SubscriptionPaymentStrategy
	logger        ports.Logger
}

var _ ports.ResourceRecorder = (*Recorder)(nil)

// NewRecorder creates a snapshot recorder
func NewRecorder(store ports.ResourceStore, logger ports.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// WithSubscriptions enables mirroring to subscriptions
func (r *Recorder) WithSubscriptions(subscriptions ports.SubscriptionPaymentStrategy) *Recorder {
	r.subscriptions = subscriptions
	return r
}

// Record overwrites the snapshot on the order and its subscriptions
func (r *Recorder) Record(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) error {
	snapshot.OrderID = order.ID
	if _, err := r.store.Put(ctx, tx, snapshot); err != nil {
		return fmt.Errorf("store %s snapshot: %w", snapshot.Type, err)
	}

	r.logger.Debug("Stored resource snapshot",
		ports.String("order_id", order.ID),
		ports.String("resource_type", string(snapshot.Type)),
		ports.String("resource_id", snapshot.ResourceID))

	return r.mirror(ctx, tx, order, snapshot)
}

// Link inserts the snapshot only when none of its type is stored for the order
func (r *Recorder) Link(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) (bool, error) {
	snapshot.OrderID = order.ID
	if _, err := r.store.PutIfVersion(ctx, tx, snapshot, 0); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			r.logger.Info("Resource already linked to order",
				ports.String("order_id", order.ID),
				ports.String("resource_type", string(snapshot.Type)))
			return false, nil
		}
		return false, fmt.Errorf("link %s snapshot: %w", snapshot.Type, err)
	}

	return true, r.mirror(ctx, tx, order, snapshot)
}

func (r *Recorder) mirror(ctx context.Context, tx ports.DBTX, order *domain.Order, snapshot *domain.Snapshot) error {
	if r.subscriptions == nil || order.IsSubscription() {
		return nil
	}
	if err := r.subscriptions.MirrorSnapshot(ctx, tx, order, snapshot); err != nil {
		return fmt.Errorf("mirror %s snapshot to subscriptions: %w", snapshot.Type, err)
	}
	return nil
}
