// Package checkout starts GoCardless billing request flows and pays orders
// with saved mandates.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

const checkoutErrorMessage = "Error processing checkout. Please try again."

// Config holds the checkout settings of the gateway
type Config struct {
	InstantPayments   bool
	SavedBankAccounts bool

	// Scheme restricts mandates to one scheme; "" lets the customer's bank decide
	Scheme string

	Policy domain.InstantPaymentPolicy

	// PaymentURLFormat and ReturnURLFormat take the order id as their only verb
	PaymentURLFormat string
	ReturnURLFormat  string

	SchemeCacheTTL time.Duration
}

// DefaultConfig returns the checkout defaults: instant payments off, saved
// bank accounts on
func DefaultConfig() Config {
	return Config{
		SavedBankAccounts: true,
		Policy:            domain.DefaultInstantPaymentPolicy(),
		SchemeCacheTTL:    24 * time.Hour,
	}
}

// FlowRequest starts a billing request flow for an order
type FlowRequest struct {
	OrderID    string
	CustomerID string
	SaveToken  bool

	// ChangePaymentMethod collects a new mandate for an existing subscription
	ChangePaymentMethod bool
}

// SavedTokenRequest pays an order with a previously saved mandate
type SavedTokenRequest struct {
	OrderID    string
	CustomerID string
	TokenID    string
}

// Service orchestrates billing request creation
type Service struct {
	orders    ports.OrderRepository
	customers ports.CustomerRepository
	tokens    ports.TokenRepository
	recorder  ports.ResourceRecorder
	client    ports.GoCardlessClient
	schemes   ports.SchemeIdentifierCache
	payments  ports.PaymentHandler
	security  ports.CheckoutTokens
	cfg       Config
	logger    ports.Logger
}

// NewService creates a new checkout service. schemes may be nil, in which
// case creditor scheme identifiers are fetched on every instant payment check.
func NewService(
	orders ports.OrderRepository,
	customers ports.CustomerRepository,
	tokens ports.TokenRepository,
	recorder ports.ResourceRecorder,
	client ports.GoCardlessClient,
	schemes ports.SchemeIdentifierCache,
	payments ports.PaymentHandler,
	security ports.CheckoutTokens,
	cfg Config,
	logger ports.Logger,
) *Service {
	if cfg.Policy == nil {
		cfg.Policy = domain.DefaultInstantPaymentPolicy()
	}
	if cfg.SchemeCacheTTL <= 0 {
		cfg.SchemeCacheTTL = 24 * time.Hour
	}
	return &Service{
		orders:    orders,
		customers: customers,
		tokens:    tokens,
		recorder:  recorder,
		client:    client,
		schemes:   schemes,
		payments:  payments,
		security:  security,
		cfg:       cfg,
		logger:    logger,
	}
}

// CreateFlow creates a billing request for the order and the flow the
// embedded UI drives. Errors never escape; they become a failure result.
func (s *Service) CreateFlow(ctx context.Context, req FlowRequest) *domain.Result {
	order, err := s.orders.GetByID(ctx, nil, req.OrderID)
	if err != nil {
		s.logger.Error("Failed to load order for checkout",
			ports.String("order_id", req.OrderID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}

	s.logger.Info("Creating a billing request",
		ports.String("order_id", order.ID),
		ports.String("order_number", order.Number))

	params := s.billingRequestParams(ctx, order, req)
	linkedCustomer := s.linkRemoteCustomer(ctx, req.CustomerID, params)

	br, err := s.client.CreateBillingRequest(ctx, params)
	if err != nil {
		s.logger.Error("Failed to create billing request",
			ports.String("order_id", order.ID),
			ports.Err(err))
		return domain.Failure(failureMessage(
			domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to create billing request", err)))
	}
	if br.ID == "" {
		return domain.Failure(checkoutErrorMessage)
	}

	if err := s.record(ctx, order, domain.ResourceBillingRequest, br.ID, string(br.Status), br); err != nil {
		s.logger.Error("Failed to store billing request",
			ports.String("order_id", order.ID),
			ports.String("billing_request_id", br.ID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}

	if !linkedCustomer && req.CustomerID != "" && br.Links.Customer != "" {
		if err := s.customers.SetRemoteCustomerID(ctx, nil, req.CustomerID, br.Links.Customer); err != nil {
			s.logger.Warn("Failed to store remote customer id",
				ports.String("customer_id", req.CustomerID),
				ports.Err(err))
		}
	}

	s.logger.Info("Billing request created",
		ports.String("order_id", order.ID),
		ports.String("billing_request_id", br.ID),
		ports.Bool("payment_request", params.PaymentRequest != nil),
		ports.Bool("mandate_request", params.MandateRequest != nil))

	flow, err := s.client.CreateBillingRequestFlow(ctx, &ports.CreateBillingRequestFlowParams{
		BillingRequestID:  br.ID,
		PrefilledCustomer: prefilledCustomer(order),
	})
	if err != nil {
		// TODO: the billing request created above stays open remotely; add a
		// billing request cancel call to the client if product wants cleanup.
		s.logger.Error("Failed to create billing request flow",
			ports.String("order_id", order.ID),
			ports.String("billing_request_id", br.ID),
			ports.Err(err))
		return domain.Failure(failureMessage(
			domain.WrapError(domain.ErrorCodeRemoteAPI, "Failed to create billing request flow", err)))
	}
	if flow.ID == "" {
		return domain.Failure(checkoutErrorMessage)
	}

	if err := s.record(ctx, order, domain.ResourceBillingRequestFlow, flow.ID, "", flow); err != nil {
		s.logger.Error("Failed to store billing request flow",
			ports.String("order_id", order.ID),
			ports.String("billing_request_flow_id", flow.ID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}

	token, err := s.security.Issue(order.ID)
	if err != nil {
		s.logger.Error("Failed to issue checkout token",
			ports.String("order_id", order.ID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}

	return &domain.Result{
		Result:        domain.ResultSuccess,
		Redirect:      fmt.Sprintf(s.cfg.PaymentURLFormat, order.ID),
		FlowID:        flow.ID,
		SecurityToken: token,
	}
}

func (s *Service) billingRequestParams(ctx context.Context, order *domain.Order, req FlowRequest) *ports.CreateBillingRequestParams {
	params := &ports.CreateBillingRequestParams{
		Metadata: map[string]string{"order_id": order.ID},
	}

	if s.collectInstantly(ctx, order, req) {
		params.PaymentRequest = &domain.PaymentRequest{
			Description: domain.PaymentDescription(order),
			Amount:      domain.ToMinorUnits(order.Total, order.Currency),
			Currency:    order.Currency,
			Metadata:    map[string]string{"order_id": order.ID},
		}
		if s.needsMandate(order, req) {
			params.MandateRequest = s.mandateRequest(order)
		}
		return params
	}

	params.MandateRequest = s.mandateRequest(order)
	return params
}

// collectInstantly reports whether the order total can be collected with an
// instant bank payment rather than a mandate alone
func (s *Service) collectInstantly(ctx context.Context, order *domain.Order, req FlowRequest) bool {
	if !order.Total.IsPositive() || req.ChangePaymentMethod || order.ChargedUponRelease() {
		return false
	}
	if !s.cfg.InstantPayments {
		return false
	}
	return s.cfg.Policy.Supports(order.Currency, order.Billing.CountryCode, s.PaymentRequestSchemes(ctx))
}

func (s *Service) needsMandate(order *domain.Order, req FlowRequest) bool {
	return s.saveToken(req.SaveToken, req.CustomerID) ||
		order.ChargedUponRelease() ||
		order.IsSubscriptionOrRenewal() ||
		req.ChangePaymentMethod
}

func (s *Service) saveToken(requested bool, customerID string) bool {
	return requested && s.cfg.SavedBankAccounts && customerID != ""
}

func (s *Service) mandateRequest(order *domain.Order) *domain.MandateRequest {
	return &domain.MandateRequest{Currency: order.Currency, Scheme: s.cfg.Scheme}
}

// linkRemoteCustomer links the customer's existing remote profile so no
// duplicate is created. Returns true when a link was added.
func (s *Service) linkRemoteCustomer(ctx context.Context, customerID string, params *ports.CreateBillingRequestParams) bool {
	if customerID == "" {
		return false
	}
	remoteID, err := s.customers.GetRemoteCustomerID(ctx, nil, customerID)
	if err != nil || remoteID == "" {
		return false
	}

	customer, err := s.client.GetCustomer(ctx, remoteID)
	if err != nil || customer == nil || customer.ID == "" {
		s.logger.Warn("Stored remote customer is no longer available",
			ports.String("customer_id", customerID),
			ports.Err(err))
		return false
	}

	params.Links = &ports.BillingRequestCustomerLink{Customer: customer.ID}
	return true
}

// SchemeIdentifiers returns the active scheme identifiers of the creditor,
// cached for SchemeCacheTTL. Failures yield no schemes.
func (s *Service) SchemeIdentifiers(ctx context.Context) []domain.SchemeIdentifier {
	if s.schemes != nil {
		ids, ok, err := s.schemes.Get(ctx)
		if err != nil {
			s.logger.Warn("Failed to read scheme identifier cache", ports.Err(err))
		} else if ok {
			return ids
		}
	}

	creditors, err := s.client.ListCreditors(ctx)
	if err != nil {
		s.logger.Warn("Failed to list creditors", ports.Err(err))
		return nil
	}
	if len(creditors) == 0 {
		return nil
	}

	// Accounts hold exactly one creditor
	ids := domain.ActiveSchemeIdentifiers(creditors[0].SchemeIdentifiers)

	if s.schemes != nil {
		if err := s.schemes.Set(ctx, ids, s.cfg.SchemeCacheTTL); err != nil {
			s.logger.Warn("Failed to cache scheme identifiers", ports.Err(err))
		}
	}
	return ids
}

// PaymentRequestSchemes returns the active instant payment schemes
func (s *Service) PaymentRequestSchemes(ctx context.Context) []string {
	return domain.PaymentRequestSchemes(s.SchemeIdentifiers(ctx))
}

// PayWithSavedToken collects the order against a mandate the customer saved
// earlier
func (s *Service) PayWithSavedToken(ctx context.Context, req SavedTokenRequest) *domain.Result {
	token, err := s.tokens.GetByID(ctx, nil, req.TokenID)
	if err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
		s.logger.Error("Failed to load payment token",
			ports.String("token_id", req.TokenID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}
	if token == nil || req.CustomerID == "" || token.CustomerID != req.CustomerID || token.Gateway != domain.GatewayID {
		return domain.Failure("Invalid payment method. Please setup a new direct debit account.")
	}

	order, err := s.orders.GetByID(ctx, nil, req.OrderID)
	if err != nil {
		s.logger.Error("Failed to load order for saved token payment",
			ports.String("order_id", req.OrderID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}

	mandate, err := s.client.GetMandate(ctx, token.MandateID)
	if err != nil {
		s.logger.Error("Failed to retrieve mandate for saved token",
			ports.String("order_id", order.ID),
			ports.String("mandate_id", token.MandateID),
			ports.Err(err))
		return domain.Failure("Failed to retrieve mandate.")
	}

	if err := s.record(ctx, order, domain.ResourceMandate, mandate.ID, "", mandate); err != nil {
		s.logger.Error("Failed to store mandate",
			ports.String("order_id", order.ID),
			ports.Err(err))
		return domain.Failure(checkoutErrorMessage)
	}

	if err := s.payments.OnMandateCreated(ctx, order.ID, mandate.ID); err != nil {
		s.logger.Error("Failed to pay with saved token",
			ports.String("order_id", order.ID),
			ports.String("mandate_id", mandate.ID),
			ports.Err(err))
		return domain.Failure(failureMessage(err))
	}

	return domain.Success(fmt.Sprintf(s.cfg.ReturnURLFormat, order.ID))
}

// SavedTokens lists the bank accounts a customer can pay with
func (s *Service) SavedTokens(ctx context.Context, customerID string) ([]*domain.PaymentToken, error) {
	if !s.cfg.SavedBankAccounts || customerID == "" {
		return nil, nil
	}
	return s.tokens.ListByCustomer(ctx, nil, customerID)
}

// DeleteSavedToken removes a token the customer owns. The mandate stays
// active remotely.
func (s *Service) DeleteSavedToken(ctx context.Context, customerID, tokenID string) error {
	if err := s.tokens.Delete(ctx, nil, customerID, tokenID); err != nil {
		return err
	}
	s.logger.Info("Payment token deleted",
		ports.String("customer_id", customerID),
		ports.String("token_id", tokenID))
	return nil
}

func (s *Service) record(ctx context.Context, order *domain.Order, t domain.ResourceType, id, status string, resource interface{}) error {
	snapshot, err := domain.NewSnapshot(order.ID, t, id, status, resource)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", t, err)
	}
	return s.recorder.Record(ctx, nil, order, snapshot)
}

func prefilledCustomer(order *domain.Order) *domain.PrefilledCustomer {
	b := order.Billing
	return &domain.PrefilledCustomer{
		GivenName:    b.FirstName,
		FamilyName:   b.LastName,
		Email:        b.Email,
		CompanyName:  b.Company,
		AddressLine1: b.Address1,
		AddressLine2: b.Address2,
		City:         b.City,
		PostalCode:   b.Postcode,
		CountryCode:  b.CountryCode,
	}
}

func failureMessage(err error) string {
	if msg := domain.UserMessage(err); msg != "" {
		return msg
	}
	return checkoutErrorMessage
}
