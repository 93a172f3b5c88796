// Package billingrequest reconciles fulfilled and cancelled billing requests
// with the orders that created them.
package billingrequest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

const (
	failureMessage      = "We were unable to process your order."
	failureRetryMessage = `We were unable to process your order, <a href="%s">click here to try again</a>.`
	failureContact      = "If the problem still persists please contact us with the details below."
	failureFallback     = "An unexpected error occurred."
)

// Config holds the customer-facing links returned by Complete.
// Both formats take the order id as their only verb.
type Config struct {
	ReturnURLFormat string
	RetryURLFormat  string
}

// CompleteRequest is the browser callback after the embedded flow finished
type CompleteRequest struct {
	OrderID           string
	BillingRequestID  string
	SaveCustomerToken bool

	// ViewerCustomerID is the customer looking at the result, "" for guests
	ViewerCustomerID string
}

// Service implements ports.BillingRequestReconciler
type Service struct {
	db       ports.DBPort
	orders   ports.OrderRepository
	store    ports.ResourceStore
	recorder ports.ResourceRecorder
	client   ports.GoCardlessClient
	payments ports.PaymentHandler
	mandates ports.MandateResolver
	cfg      Config
	logger   ports.Logger
}

var _ ports.BillingRequestReconciler = (*Service)(nil)

// NewService creates a new billing request service
func NewService(
	db ports.DBPort,
	orders ports.OrderRepository,
	store ports.ResourceStore,
	recorder ports.ResourceRecorder,
	client ports.GoCardlessClient,
	payments ports.PaymentHandler,
	mandates ports.MandateResolver,
	cfg Config,
	logger ports.Logger,
) *Service {
	return &Service{
		db:       db,
		orders:   orders,
		store:    store,
		recorder: recorder,
		client:   client,
		payments: payments,
		mandates: mandates,
		cfg:      cfg,
		logger:   logger,
	}
}

// Complete links the payment and mandate of a billing request the customer
// just authorised. Errors never escape; they become a failure result.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) *domain.Result {
	order, err := s.orders.GetByID(ctx, nil, req.OrderID)
	if err != nil {
		s.logger.Error("Failed to load order for billing request completion",
			ports.String("order_id", req.OrderID),
			ports.Err(err))
		return domain.Failure(s.failureMessage(nil, req.ViewerCustomerID, err))
	}

	if err := s.complete(ctx, order, req.BillingRequestID, req.SaveCustomerToken); err != nil {
		s.logger.Error("Error when handling billing request fulfilled",
			ports.String("order_id", order.ID),
			ports.String("billing_request_id", req.BillingRequestID),
			ports.Err(err))
		return domain.Failure(s.failureMessage(order, req.ViewerCustomerID, err))
	}

	s.logger.Info("Billing request fulfilled",
		ports.String("order_id", order.ID),
		ports.String("billing_request_id", req.BillingRequestID))
	return domain.Success(fmt.Sprintf(s.cfg.ReturnURLFormat, order.ID))
}

func (s *Service) complete(ctx context.Context, order *domain.Order, billingRequestID string, save bool) error {
	stored, err := s.store.Get(ctx, nil, order.ID, domain.ResourceBillingRequest)
	if err != nil && !errors.Is(err, domain.ErrResourceNotFound) {
		return err
	}
	if stored == nil || billingRequestID == "" || stored.ResourceID != billingRequestID {
		return domain.NewDomainError(domain.ErrorCodeBillingRequestInvalid, "Invalid billing request.")
	}

	br, err := s.client.GetBillingRequest(ctx, billingRequestID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to retrieve billing request.", err)
	}
	if !br.IsCompleted() {
		return domain.NewDomainError(domain.ErrorCodeBillingRequestNotFulfilled,
			"Billing request is not fulfilling or fulfilled.").
			WithDetail("status", string(br.Status))
	}

	return s.link(ctx, order, br, save)
}

// link persists the billing request and claims its payment and mandate for
// the order. Resources already linked by a concurrent flow are left alone.
func (s *Service) link(ctx context.Context, order *domain.Order, br *domain.BillingRequest, save bool) error {
	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourceBillingRequest, br.ID, string(br.Status), br)
	if err != nil {
		return fmt.Errorf("encode billing request snapshot: %w", err)
	}
	if err := s.recorder.Record(ctx, nil, order, snapshot); err != nil {
		return err
	}

	if br.PaymentRequest != nil {
		if err := s.linkPayment(ctx, order, br); err != nil {
			return err
		}
	}
	if br.MandateRequest != nil {
		if err := s.linkMandate(ctx, order, br, save); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) linkPayment(ctx context.Context, order *domain.Order, br *domain.BillingRequest) error {
	paymentID := br.Links.PaymentRequestPayment
	if paymentID == "" {
		if br.IsFulfilling() {
			s.logger.Info("Payment not yet created for billing request",
				ports.String("order_id", order.ID),
				ports.String("billing_request_id", br.ID))
			return nil
		}
		return domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "Payment is missing from billing request.")
	}

	linked, err := s.isLinked(ctx, order.ID, domain.ResourcePayment)
	if err != nil {
		return err
	}
	if linked {
		s.logger.Info("Payment already created for billing request",
			ports.String("order_id", order.ID),
			ports.String("billing_request_id", br.ID))
		return nil
	}

	payment, err := s.client.GetPayment(ctx, paymentID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to retrieve payment.", err)
	}
	if payment == nil || payment.ID == "" {
		return domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "Unexpected payment response from GoCardless.")
	}

	expected := domain.ToMinorUnits(order.Total, order.Currency)
	if payment.Amount != expected {
		s.logger.Error("Order total does not match payment amount",
			ports.String("order_id", order.ID),
			ports.String("payment_id", payment.ID),
			ports.Int("order_amount", int(expected)),
			ports.Int("payment_amount", int(payment.Amount)))
		return domain.NewDomainError(domain.ErrorCodeAmountMismatch, "Order total does not match payment amount.").
			WithDetail("order_amount", expected).
			WithDetail("payment_amount", payment.Amount)
	}

	claimed, err := s.payments.LinkPaymentCreation(ctx, order, payment, false)
	if err != nil {
		return err
	}
	if !claimed {
		s.logger.Info("Payment linked by a concurrent flow",
			ports.String("order_id", order.ID),
			ports.String("payment_id", payment.ID))
	}
	return nil
}

func (s *Service) linkMandate(ctx context.Context, order *domain.Order, br *domain.BillingRequest, save bool) error {
	mandateID := br.Links.MandateRequestMandate
	if mandateID == "" {
		if !br.IsFulfilling() || br.PaymentRequest == nil {
			return domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "Mandate is missing from billing request.")
		}
		if save && !order.SaveCustomerToken {
			if err := s.orders.SetSaveCustomerToken(ctx, nil, order.ID, true); err != nil {
				return fmt.Errorf("defer customer token: %w", err)
			}
			order.SaveCustomerToken = true
		}
		s.logger.Info("Mandate not yet created for billing request",
			ports.String("order_id", order.ID),
			ports.String("billing_request_id", br.ID),
			ports.Bool("save_customer_token", save))
		return nil
	}

	linked, err := s.isLinked(ctx, order.ID, domain.ResourceMandate)
	if err != nil {
		return err
	}
	if linked {
		s.logger.Info("Mandate already saved for billing request",
			ports.String("order_id", order.ID),
			ports.String("billing_request_id", br.ID))
		if br.PaymentRequest != nil {
			return nil
		}
		return s.resumeMandatePayment(ctx, order, mandateID)
	}

	mandate, err := s.client.GetMandate(ctx, mandateID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to retrieve mandate.", err)
	}

	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourceMandate, mandateID, "", mandate)
	if err != nil {
		return fmt.Errorf("encode mandate snapshot: %w", err)
	}
	claimed, err := s.recorder.Link(ctx, nil, order, snapshot)
	if err != nil || !claimed {
		return err
	}

	if save {
		s.saveToken(ctx, order, mandate)
	}

	if br.PaymentRequest == nil {
		s.logger.Info("Creating GoCardless payment for mandate",
			ports.String("order_id", order.ID),
			ports.String("mandate_id", mandateID))
		return s.payments.OnMandateCreated(ctx, order.ID, mandateID)
	}
	return nil
}

// resumeMandatePayment charges a mandate-only order whose earlier completion
// linked the mandate but never recorded a payment
func (s *Service) resumeMandatePayment(ctx context.Context, order *domain.Order, mandateID string) error {
	paid, err := s.isLinked(ctx, order.ID, domain.ResourcePayment)
	if err != nil || paid {
		return err
	}
	s.logger.Warn("Mandate linked without a payment, creating it now",
		ports.String("order_id", order.ID),
		ports.String("mandate_id", mandateID))
	return s.payments.OnMandateCreated(ctx, order.ID, mandateID)
}

// saveToken stores the mandate for reuse. A failed save does not fail checkout.
func (s *Service) saveToken(ctx context.Context, order *domain.Order, mandate *domain.Mandate) {
	if err := s.mandates.SaveCustomerToken(ctx, order.CustomerID, mandate); err != nil {
		s.logger.Error("Failed to save customer token",
			ports.String("order_id", order.ID),
			ports.String("mandate_id", mandate.ID),
			ports.Err(err))
		return
	}
	if order.SaveCustomerToken {
		if err := s.orders.SetSaveCustomerToken(ctx, nil, order.ID, false); err != nil {
			s.logger.Warn("Failed to clear deferred customer token flag",
				ports.String("order_id", order.ID),
				ports.Err(err))
		}
		order.SaveCustomerToken = false
	}
}

func (s *Service) isLinked(ctx context.Context, orderID string, resourceType domain.ResourceType) (bool, error) {
	stored, err := s.store.Get(ctx, nil, orderID, resourceType)
	if err != nil {
		if errors.Is(err, domain.ErrResourceNotFound) {
			return false, nil
		}
		return false, err
	}
	return stored != nil && stored.ResourceID != "", nil
}

// ReconcileFulfilled is the backup for a browser completion that never
// happened, e.g. the customer closed the tab after authorising.
func (s *Service) ReconcileFulfilled(ctx context.Context, event *domain.Event) error {
	billingRequestID := event.Links.BillingRequest
	order, ok, err := s.findOrder(ctx, billingRequestID)
	if err != nil || !ok {
		return err
	}

	stored, err := s.store.Get(ctx, nil, order.ID, domain.ResourceBillingRequest)
	if err != nil && !errors.Is(err, domain.ErrResourceNotFound) {
		return err
	}
	wasFulfilling := stored != nil && stored.Status == string(domain.BillingRequestFulfilling)

	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusCancelled && !wasFulfilling {
		s.logger.Info("No action required for billing request",
			ports.String("order_id", order.ID),
			ports.String("order_status", string(order.Status)))
		return nil
	}

	br, err := s.client.GetBillingRequest(ctx, billingRequestID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to retrieve billing request.", err)
	}
	if br.Metadata["order_id"] != order.ID {
		return domain.NewDomainError(domain.ErrorCodeOrderMismatch,
			fmt.Sprintf("order ID %s doesn't match order ID %q of the billing request", order.ID, br.Metadata["order_id"]))
	}
	if !br.IsCompleted() {
		return domain.NewDomainError(domain.ErrorCodeBillingRequestNotFulfilled,
			"Billing request is not fulfilling or fulfilled.").
			WithDetail("status", string(br.Status))
	}

	return s.link(ctx, order, br, order.SaveCustomerToken)
}

// HandleCancelled cancels a pending order whose billing request was abandoned
// before anything was collected
func (s *Service) HandleCancelled(ctx context.Context, event *domain.Event) error {
	billingRequestID := event.Links.BillingRequest
	order, ok, err := s.findOrder(ctx, billingRequestID)
	if err != nil || !ok {
		return err
	}

	if order.Status != domain.OrderStatusPending {
		s.logger.Info("No action required for cancelled billing request",
			ports.String("order_id", order.ID),
			ports.String("order_status", string(order.Status)))
		return nil
	}

	br, err := s.client.GetBillingRequest(ctx, billingRequestID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to retrieve billing request.", err)
	}
	if br.Status != domain.BillingRequestCancelled {
		s.logger.Warn("Unexpected billing request status for cancelled event",
			ports.String("billing_request_id", billingRequestID),
			ports.String("status", string(br.Status)))
		return nil
	}

	for _, t := range []domain.ResourceType{domain.ResourcePayment, domain.ResourceMandate} {
		linked, err := s.isLinked(ctx, order.ID, t)
		if err != nil {
			return err
		}
		if linked {
			s.logger.Info("Billing request cancelled after collection, keeping order",
				ports.String("order_id", order.ID),
				ports.String("resource_type", string(t)))
			return nil
		}
	}

	snapshot, err := domain.NewSnapshot(order.ID, domain.ResourceBillingRequest, br.ID, string(br.Status), br)
	if err != nil {
		return fmt.Errorf("encode billing request snapshot: %w", err)
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, domain.OrderStatusCancelled); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if err := s.store.AddNote(ctx, tx, order.ID, "Billing request cancelled."); err != nil {
			return err
		}
		return s.recorder.Record(ctx, tx, order, snapshot)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order cancelled with its billing request",
		ports.String("order_id", order.ID),
		ports.String("billing_request_id", br.ID))
	return nil
}

func (s *Service) findOrder(ctx context.Context, billingRequestID string) (*domain.Order, bool, error) {
	order, err := s.store.FindOrderByResource(ctx, nil, domain.ResourceBillingRequest, billingRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.Warn("Could not find order for billing request",
				ports.String("billing_request_id", billingRequestID))
			return nil, false, nil
		}
		return nil, false, err
	}
	if !order.IsPaidViaGateway() {
		s.logger.Warn("Order is not paid via GoCardless",
			ports.String("order_id", order.ID),
			ports.String("payment_method", order.PaymentMethod))
		return nil, false, nil
	}
	return order, true, nil
}

func (s *Service) failureMessage(order *domain.Order, viewerCustomerID string, err error) string {
	msg := failureMessage
	if order != nil && viewerCustomerID != "" && viewerCustomerID == order.CustomerID && s.cfg.RetryURLFormat != "" {
		msg = fmt.Sprintf(failureRetryMessage, fmt.Sprintf(s.cfg.RetryURLFormat, order.ID))
	}

	detail := domain.UserMessage(err)
	if detail == "" {
		detail = failureFallback
	}
	return fmt.Sprintf("%s %s<br><br>%s", msg, failureContact, detail)
}
