package domain

// Remote resources as returned by the GoCardless API. Only the fields the
// reconciliation engine reads are modelled; snapshots keep the full payload.

// BillingRequestStatus is the remote lifecycle of a billing request
type BillingRequestStatus string

const (
	BillingRequestPending    BillingRequestStatus = "pending"
	BillingRequestFulfilling BillingRequestStatus = "fulfilling"
	BillingRequestFulfilled  BillingRequestStatus = "fulfilled"
	BillingRequestCancelled  BillingRequestStatus = "cancelled"
)

// PaymentStatus is the remote lifecycle of a payment
type PaymentStatus string

const (
	PaymentPendingCustomerApproval PaymentStatus = "pending_customer_approval"
	PaymentPendingSubmission       PaymentStatus = "pending_submission"
	PaymentSubmitted               PaymentStatus = "submitted"
	PaymentConfirmed               PaymentStatus = "confirmed"
	PaymentPaidOut                 PaymentStatus = "paid_out"
	PaymentFailed                  PaymentStatus = "failed"
	PaymentCancelled               PaymentStatus = "cancelled"
	PaymentCustomerApprovalDenied  PaymentStatus = "customer_approval_denied"
	PaymentChargedBack             PaymentStatus = "charged_back"
	PaymentChargebackSettled       PaymentStatus = "chargeback_settled"
)

// IsEndStatus reports whether no further status change is expected for the
// purposes of the deferred status check
func (s PaymentStatus) IsEndStatus() bool {
	switch s {
	case PaymentConfirmed, PaymentPaidOut, PaymentFailed, PaymentCancelled,
		PaymentChargedBack, PaymentCustomerApprovalDenied:
		return true
	}
	return false
}

// IsInProgress reports whether the payment is still moving through collection
func (s PaymentStatus) IsInProgress() bool {
	switch s {
	case PaymentPendingSubmission, PaymentSubmitted, PaymentPendingCustomerApproval:
		return true
	}
	return false
}

// BillingRequestLinks references resources created by a billing request
type BillingRequestLinks struct {
	Customer              string `json:"customer,omitempty"`
	CustomerBankAccount   string `json:"customer_bank_account,omitempty"`
	MandateRequest        string `json:"mandate_request,omitempty"`
	MandateRequestMandate string `json:"mandate_request_mandate,omitempty"`
	PaymentRequest        string `json:"payment_request,omitempty"`
	PaymentRequestPayment string `json:"payment_request_payment,omitempty"`
}

// PaymentRequest is the instant-payment half of a billing request
type PaymentRequest struct {
	Description string            `json:"description,omitempty"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// MandateRequest is the mandate half of a billing request
type MandateRequest struct {
	Currency string `json:"currency"`
	Scheme   string `json:"scheme,omitempty"`
}

// BillingRequest bundles an optional mandate request and payment request
type BillingRequest struct {
	ID             string               `json:"id"`
	Status         BillingRequestStatus `json:"status"`
	PaymentRequest *PaymentRequest      `json:"payment_request,omitempty"`
	MandateRequest *MandateRequest      `json:"mandate_request,omitempty"`
	Metadata       map[string]string    `json:"metadata,omitempty"`
	Links          BillingRequestLinks  `json:"links"`
	CreatedAt      string               `json:"created_at,omitempty"`
}

// IsFulfilling reports whether the customer finished the flow but the remote
// system has not yet created every resource
func (b *BillingRequest) IsFulfilling() bool {
	return b.Status == BillingRequestFulfilling
}

// IsCompleted reports whether the billing request reached a collectable state
func (b *BillingRequest) IsCompleted() bool {
	return b.Status == BillingRequestFulfilling || b.Status == BillingRequestFulfilled
}

// BillingRequestFlow drives the embedded authorisation UI
type BillingRequestFlow struct {
	ID               string `json:"id"`
	AuthorisationURL string `json:"authorisation_url,omitempty"`
	Links            struct {
		BillingRequest string `json:"billing_request"`
	} `json:"links"`
}

// PrefilledCustomer pre-populates the billing request flow
type PrefilledCustomer struct {
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	Email        string `json:"email,omitempty"`
	CompanyName  string `json:"company_name,omitempty"`
	AddressLine1 string `json:"address_line1,omitempty"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city,omitempty"`
	PostalCode   string `json:"postal_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// Mandate is a long-lived debit authorisation
type Mandate struct {
	ID     string `json:"id"`
	Scheme string `json:"scheme"`
	Status string `json:"status"`
	Links  struct {
		Customer            string `json:"customer,omitempty"`
		CustomerBankAccount string `json:"customer_bank_account,omitempty"`
		Creditor            string `json:"creditor,omitempty"`
		NewMandate          string `json:"new_mandate,omitempty"`
	} `json:"links"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Payment is a single debit attempt
type Payment struct {
	ID          string            `json:"id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Status      PaymentStatus     `json:"status"`
	ChargeDate  string            `json:"charge_date,omitempty"`
	Description string            `json:"description,omitempty"`
	Reference   string            `json:"reference,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Links       struct {
		Mandate      string `json:"mandate,omitempty"`
		Creditor     string `json:"creditor,omitempty"`
		Subscription string `json:"subscription,omitempty"`
	} `json:"links"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Refund returns part or all of a payment
type Refund struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Reference string            `json:"reference,omitempty"`
	Status    string            `json:"status,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Links     struct {
		Payment string `json:"payment"`
	} `json:"links"`
}

// Customer is the remote customer profile
type Customer struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	GivenName string `json:"given_name,omitempty"`
}

// CustomerBankAccount carries display data for saved tokens
type CustomerBankAccount struct {
	ID                  string `json:"id"`
	AccountHolderName   string `json:"account_holder_name"`
	AccountNumberEnding string `json:"account_number_ending"`
	BankName            string `json:"bank_name"`
}

// SchemeIdentifier is a creditor's registration on a payment scheme
type SchemeIdentifier struct {
	Name   string `json:"name,omitempty"`
	Scheme string `json:"scheme"`
	Status string `json:"status"`
}

// Creditor is the merchant account on the remote side
type Creditor struct {
	ID                string             `json:"id"`
	Name              string             `json:"name,omitempty"`
	SchemeIdentifiers []SchemeIdentifier `json:"scheme_identifiers"`
}

// RemoteSubscription is a pre-migration recurring schedule held remotely
type RemoteSubscription struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  struct {
		Mandate string `json:"mandate"`
	} `json:"links"`
}
