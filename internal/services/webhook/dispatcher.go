package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
	"github.com/kevin07696/gocardless-service/pkg/observability"
)

// Dispatcher routes queued webhook events to their handlers
type Dispatcher struct {
	store         ports.ResourceStore
	mandates      ports.MandateResolver
	payments      ports.PaymentEventHandler
	billing       ports.BillingRequestReconciler
	subscriptions ports.SubscriptionPaymentStrategy
	dedup         ports.EventDeduplicator
	logger        ports.Logger
}

var _ ports.WebhookProcessor = (*Dispatcher)(nil)

// NewDispatcher creates a dispatcher. Legacy subscription events are dropped
// unless WithSubscriptions is set.
func NewDispatcher(
	store ports.ResourceStore,
	mandates ports.MandateResolver,
	payments ports.PaymentEventHandler,
	billing ports.BillingRequestReconciler,
	logger ports.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:    store,
		mandates: mandates,
		payments: payments,
		billing:  billing,
		logger:   logger,
	}
}

// WithSubscriptions enables handling of legacy subscription events
func (d *Dispatcher) WithSubscriptions(subscriptions ports.SubscriptionPaymentStrategy) *Dispatcher {
	d.subscriptions = subscriptions
	return d
}

// WithDeduplicator skips events a previous delivery already handled
func (d *Dispatcher) WithDeduplicator(dedup ports.EventDeduplicator) *Dispatcher {
	d.dedup = dedup
	return d
}

// Process handles every event in a payload. Failed events are logged and
// skipped; only an unreadable payload is returned as an error.
func (d *Dispatcher) Process(ctx context.Context, payload []byte) error {
	var body domain.WebhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return domain.WrapError(domain.ErrorCodeWebhookInvalidPayload, "invalid JSON payload", err)
	}

	for i := range body.Events {
		event := &body.Events[i]
		status := d.processEvent(ctx, event)
		observability.RecordWebhookEvent(event.ResourceType, event.Action, status)
	}
	return nil
}

func (d *Dispatcher) processEvent(ctx context.Context, event *domain.Event) string {
	dedup := d.dedup != nil && event.ID != ""
	if dedup {
		seen, err := d.dedup.Processed(ctx, event.ID)
		if err != nil {
			d.logger.Warn("Event deduplication unavailable",
				ports.String("event_id", event.ID),
				ports.Err(err))
		} else if seen {
			d.logger.Debug("Duplicate webhook event skipped",
				ports.String("event_id", event.ID))
			return "duplicate"
		}
	}

	handled, err := d.dispatch(ctx, event)
	if err != nil {
		d.logger.Error("Webhook event failed",
			ports.String("event_id", event.ID),
			ports.String("resource_type", event.ResourceType),
			ports.String("action", event.Action),
			ports.Err(err))
		return "failed"
	}
	if dedup {
		if err := d.dedup.MarkProcessed(ctx, event.ID); err != nil {
			d.logger.Warn("Failed to mark event processed",
				ports.String("event_id", event.ID),
				ports.Err(err))
		}
	}
	if !handled {
		return "ignored"
	}
	return "processed"
}

// dispatch reports false for events nothing acts on
func (d *Dispatcher) dispatch(ctx context.Context, event *domain.Event) (bool, error) {
	switch kind := event.Kind(); kind {
	case domain.EventMandateReplaced:
		if err := d.mandates.ReplaceMandate(ctx, event.Links.Mandate, event.Links.NewMandate); err != nil {
			return true, err
		}
		return true, d.audit(ctx, domain.ResourceMandate, event.Links.NewMandate, event)

	case domain.EventMandateCancelled, domain.EventMandateFailed,
		domain.EventMandateExpired, domain.EventMandateBlocked:
		if err := d.mandates.RemoveTokens(ctx, event.Links.Mandate); err != nil {
			return true, err
		}
		return true, d.audit(ctx, domain.ResourceMandate, event.Links.Mandate, event)

	case domain.EventPaymentPaidOut, domain.EventPaymentConfirmed, domain.EventPaymentFailed,
		domain.EventPaymentCancelled, domain.EventPaymentChargedBack, domain.EventPaymentChargebackSettled,
		domain.EventPaymentOther:
		return true, d.payments.ApplyPaymentEvent(ctx, event)

	case domain.EventRefund:
		return true, d.payments.ApplyRefundEvent(ctx, event)

	case domain.EventBillingRequestFulfilled:
		if err := d.billing.ReconcileFulfilled(ctx, event); err != nil {
			return true, err
		}
		return true, d.audit(ctx, domain.ResourceBillingRequest, event.Links.BillingRequest, event)

	case domain.EventBillingRequestCancelled:
		if err := d.billing.HandleCancelled(ctx, event); err != nil {
			return true, err
		}
		return true, d.audit(ctx, domain.ResourceBillingRequest, event.Links.BillingRequest, event)

	case domain.EventSubscriptionPaymentCreated, domain.EventSubscriptionCancelled:
		if d.subscriptions == nil {
			return false, nil
		}
		return true, d.subscriptions.HandleLegacyEvent(ctx, event)

	case domain.EventUnknown:
		d.logger.Info("Unhandled webhook event",
			ports.String("event_id", event.ID),
			ports.String("resource_type", event.ResourceType),
			ports.String("action", event.Action))
		return false, nil

	default:
		return false, fmt.Errorf("no handler for event kind %s", kind)
	}
}

// audit appends the event to the order holding the resource, if any
func (d *Dispatcher) audit(ctx context.Context, resourceType domain.ResourceType, resourceID string, event *domain.Event) error {
	if resourceID == "" {
		return nil
	}
	order, err := d.store.FindOrderByResource(ctx, nil, resourceType, resourceID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil
		}
		return err
	}
	return d.store.AppendEvent(ctx, nil, order.ID, event)
}
