package gocardless

import (
	"context"
	"net/http"

	"github.com/kevin07696/gocardless-service/internal/domain"
	"github.com/kevin07696/gocardless-service/internal/domain/ports"
)

var _ ports.GoCardlessClient = (*Client)(nil)

type billingRequestFlowRequest struct {
	PrefilledCustomer *domain.PrefilledCustomer `json:"prefilled_customer,omitempty"`
	Links             struct {
		BillingRequest string `json:"billing_request"`
	} `json:"links"`
}

type paymentRequest struct {
	Amount          int64             `json:"amount"`
	Currency        string            `json:"currency"`
	Description     string            `json:"description,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RetryIfPossible bool              `json:"retry_if_possible"`
	Links           struct {
		Mandate string `json:"mandate"`
	} `json:"links"`
}

type refundRequest struct {
	Amount                  int64             `json:"amount"`
	TotalAmountConfirmation int64             `json:"total_amount_confirmation"`
	Metadata                map[string]string `json:"metadata,omitempty"`
	Links                   struct {
		Payment string `json:"payment"`
	} `json:"links"`
}

type metadataUpdate struct {
	Metadata map[string]string `json:"metadata"`
}

// CreateBillingRequest implements ports.GoCardlessClient
func (c *Client) CreateBillingRequest(ctx context.Context, params *ports.CreateBillingRequestParams) (*domain.BillingRequest, error) {
	var br domain.BillingRequest
	if err := c.call(ctx, "create_billing_request", http.MethodPost, "billing_requests", "billing_requests", params, &br); err != nil {
		return nil, err
	}
	if br.ID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "unexpected billing request response from GoCardless")
	}
	return &br, nil
}

// GetBillingRequest implements ports.GoCardlessClient
func (c *Client) GetBillingRequest(ctx context.Context, id string) (*domain.BillingRequest, error) {
	var br domain.BillingRequest
	if err := c.call(ctx, "get_billing_request", http.MethodGet, "billing_requests/"+id, "billing_requests", nil, &br); err != nil {
		return nil, err
	}
	return &br, nil
}

// CreateBillingRequestFlow implements ports.GoCardlessClient
func (c *Client) CreateBillingRequestFlow(ctx context.Context, params *ports.CreateBillingRequestFlowParams) (*domain.BillingRequestFlow, error) {
	req := billingRequestFlowRequest{PrefilledCustomer: params.PrefilledCustomer}
	req.Links.BillingRequest = params.BillingRequestID

	var flow domain.BillingRequestFlow
	if err := c.call(ctx, "create_billing_request_flow", http.MethodPost, "billing_request_flows", "billing_request_flows", req, &flow); err != nil {
		return nil, err
	}
	if flow.ID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "unexpected billing request flow response from GoCardless")
	}
	return &flow, nil
}

// CreatePayment implements ports.GoCardlessClient
func (c *Client) CreatePayment(ctx context.Context, params *ports.CreatePaymentParams) (*domain.Payment, error) {
	req := paymentRequest{
		Amount:          params.Amount,
		Currency:        params.Currency,
		Description:     params.Description,
		Metadata:        params.Metadata,
		RetryIfPossible: params.RetryIfPossible,
	}
	req.Links.Mandate = params.MandateID

	var payment domain.Payment
	if err := c.call(ctx, "create_payment", http.MethodPost, "payments", "payments", req, &payment); err != nil {
		return nil, err
	}
	if payment.ID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "unexpected payment response from GoCardless")
	}
	return &payment, nil
}

// GetPayment implements ports.GoCardlessClient
func (c *Client) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	if err := c.call(ctx, "get_payment", http.MethodGet, "payments/"+id, "payments", nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CancelPayment implements ports.GoCardlessClient
func (c *Client) CancelPayment(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	if err := c.call(ctx, "cancel_payment", http.MethodPost, "payments/"+id+"/actions/cancel", "payments", nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// RetryPayment implements ports.GoCardlessClient
func (c *Client) RetryPayment(ctx context.Context, id string) (*domain.Payment, error) {
	var payment domain.Payment
	if err := c.call(ctx, "retry_payment", http.MethodPost, "payments/"+id+"/actions/retry", "payments", nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// GetMandate implements ports.GoCardlessClient
func (c *Client) GetMandate(ctx context.Context, id string) (*domain.Mandate, error) {
	var mandate domain.Mandate
	if err := c.call(ctx, "get_mandate", http.MethodGet, "mandates/"+id, "mandates", nil, &mandate); err != nil {
		return nil, err
	}
	return &mandate, nil
}

// UpdateMandate implements ports.GoCardlessClient
func (c *Client) UpdateMandate(ctx context.Context, id string, metadata map[string]string) (*domain.Mandate, error) {
	var mandate domain.Mandate
	if err := c.call(ctx, "update_mandate", http.MethodPut, "mandates/"+id, "mandates", metadataUpdate{Metadata: metadata}, &mandate); err != nil {
		return nil, err
	}
	return &mandate, nil
}

// CreateRefund implements ports.GoCardlessClient
func (c *Client) CreateRefund(ctx context.Context, params *ports.CreateRefundParams) (*domain.Refund, error) {
	req := refundRequest{
		Amount:                  params.Amount,
		TotalAmountConfirmation: params.TotalAmountConfirmation,
		Metadata:                params.Metadata,
	}
	req.Links.Payment = params.PaymentID

	var refund domain.Refund
	if err := c.call(ctx, "create_refund", http.MethodPost, "refunds", "refunds", req, &refund); err != nil {
		return nil, err
	}
	if refund.ID == "" {
		return nil, domain.NewDomainError(domain.ErrorCodeUnexpectedResponse, "unexpected refund response from GoCardless")
	}
	return &refund, nil
}

// GetRefund implements ports.GoCardlessClient
func (c *Client) GetRefund(ctx context.Context, id string) (*domain.Refund, error) {
	var refund domain.Refund
	if err := c.call(ctx, "get_refund", http.MethodGet, "refunds/"+id, "refunds", nil, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// GetCustomer implements ports.GoCardlessClient
func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := c.call(ctx, "get_customer", http.MethodGet, "customers/"+id, "customers", nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomer implements ports.GoCardlessClient
func (c *Client) UpdateCustomer(ctx context.Context, id string, metadata map[string]string) (*domain.Customer, error) {
	var customer domain.Customer
	if err := c.call(ctx, "update_customer", http.MethodPut, "customers/"+id, "customers", metadataUpdate{Metadata: metadata}, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomerBankAccount implements ports.GoCardlessClient
func (c *Client) GetCustomerBankAccount(ctx context.Context, id string) (*domain.CustomerBankAccount, error) {
	var account domain.CustomerBankAccount
	if err := c.call(ctx, "get_customer_bank_account", http.MethodGet, "customer_bank_accounts/"+id, "customer_bank_accounts", nil, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// CancelSubscription implements ports.GoCardlessClient
func (c *Client) CancelSubscription(ctx context.Context, id string) (*domain.RemoteSubscription, error) {
	var sub domain.RemoteSubscription
	if err := c.call(ctx, "cancel_subscription", http.MethodPost, "subscriptions/"+id+"/actions/cancel", "subscriptions", nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListCreditors implements ports.GoCardlessClient
func (c *Client) ListCreditors(ctx context.Context) ([]domain.Creditor, error) {
	var creditors []domain.Creditor
	if err := c.call(ctx, "list_creditors", http.MethodGet, "creditors", "creditors", nil, &creditors); err != nil {
		return nil, err
	}
	return creditors, nil
}
