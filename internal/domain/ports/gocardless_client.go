package ports

import (
	"context"
	"errors"

	"github.com/kevin07696/gocardless-service/internal/domain"
)

// BillingRequestCustomerLink links an existing remote customer to a billing request
type BillingRequestCustomerLink struct {
	Customer string `json:"customer,omitempty"`
}

// CreateBillingRequestParams contains the resources a billing request should collect
type CreateBillingRequestParams struct {
	PaymentRequest *domain.PaymentRequest      `json:"payment_request,omitempty"`
	MandateRequest *domain.MandateRequest      `json:"mandate_request,omitempty"`
	Metadata       map[string]string           `json:"metadata,omitempty"`
	Links          *BillingRequestCustomerLink `json:"links,omitempty"`
}

// CreateBillingRequestFlowParams configures the embedded authorisation flow
type CreateBillingRequestFlowParams struct {
	BillingRequestID  string
	PrefilledCustomer *domain.PrefilledCustomer
}

// CreatePaymentParams contains the data needed to debit a mandate
type CreatePaymentParams struct {
	Amount          int64
	Currency        string
	Description     string
	MandateID       string
	Metadata        map[string]string
	RetryIfPossible bool
}

// CreateRefundParams contains the data needed to refund a payment
type CreateRefundParams struct {
	PaymentID               string
	Amount                  int64
	TotalAmountConfirmation int64
	Metadata                map[string]string
}

// GoCardlessClient is the typed remote API. Every call is a blocking round-trip.
type GoCardlessClient interface {
	// Billing requests
	CreateBillingRequest(ctx context.Context, params *CreateBillingRequestParams) (*domain.BillingRequest, error)
	GetBillingRequest(ctx context.Context, id string) (*domain.BillingRequest, error)
	CreateBillingRequestFlow(ctx context.Context, params *CreateBillingRequestFlowParams) (*domain.BillingRequestFlow, error)

	// Payments
	CreatePayment(ctx context.Context, params *CreatePaymentParams) (*domain.Payment, error)
	GetPayment(ctx context.Context, id string) (*domain.Payment, error)
	CancelPayment(ctx context.Context, id string) (*domain.Payment, error)
	RetryPayment(ctx context.Context, id string) (*domain.Payment, error)

	// Mandates
	GetMandate(ctx context.Context, id string) (*domain.Mandate, error)
	UpdateMandate(ctx context.Context, id string, metadata map[string]string) (*domain.Mandate, error)

	// Refunds
	CreateRefund(ctx context.Context, params *CreateRefundParams) (*domain.Refund, error)
	GetRefund(ctx context.Context, id string) (*domain.Refund, error)

	// Customers
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, metadata map[string]string) (*domain.Customer, error)
	GetCustomerBankAccount(ctx context.Context, id string) (*domain.CustomerBankAccount, error)

	// Legacy subscriptions and creditor
	CancelSubscription(ctx context.Context, id string) (*domain.RemoteSubscription, error)
	ListCreditors(ctx context.Context) ([]domain.Creditor, error)
}

// MandateReplacement is implemented by remote errors that may carry a
// replacement mandate id
type MandateReplacement interface {
	error
	ReplacementMandate() (string, bool)
}

// ReplacementMandate extracts the new mandate id from a mandate_replaced error
func ReplacementMandate(err error) (string, bool) {
	var r MandateReplacement
	if errors.As(err, &r) {
		return r.ReplacementMandate()
	}
	return "", false
}
