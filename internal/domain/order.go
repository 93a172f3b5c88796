package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GatewayID identifies orders paid through this integration
const GatewayID = "gocardless"

// OrderStatus mirrors the host platform's order lifecycle
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnHold     OrderStatus = "on-hold"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
	OrderStatusPreOrdered OrderStatus = "pre-ordered"

	// Subscriptions only
	OrderStatusActive OrderStatus = "active"
)

// OrderKind distinguishes one-off orders from subscription records and renewals
type OrderKind string

const (
	OrderKindOrder        OrderKind = "order"
	OrderKindSubscription OrderKind = "subscription"
	OrderKindRenewal      OrderKind = "renewal"
)

// PreOrderMode describes how a pre-order is charged
type PreOrderMode string

const (
	PreOrderNone        PreOrderMode = ""
	PreOrderUpfront     PreOrderMode = "upfront"
	PreOrderUponRelease PreOrderMode = "upon_release"
)

// OrderItem is a line item used for payment descriptions
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"qty"`
}

// BillingDetails are copied into the billing request flow's prefilled customer
type BillingDetails struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Address1    string `json:"address_1"`
	Address2    string `json:"address_2"`
	City        string `json:"city"`
	Postcode    string `json:"postcode"`
	CountryCode string `json:"country"`
}

// Order is the local view of a host order, subscription or renewal
type Order struct {
	ID                   string
	Number               string
	CustomerID           string
	Kind                 OrderKind
	ParentID             string
	Status               OrderStatus
	PaymentMethod        string
	Currency             string
	Total                decimal.Decimal
	Items                []OrderItem
	Billing              BillingDetails
	ContainsSubscription bool
	PreOrder             PreOrderMode
	PaidAt               *time.Time
	TransactionID        string
	StockReduced         bool
	TemporaryActivated   bool
	SaveCustomerToken    bool
	LegacySubscriptionID string
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsSubscription reports whether the record is a subscription rather than an order
func (o *Order) IsSubscription() bool {
	return o.Kind == OrderKindSubscription
}

// IsRenewal reports whether the order renews an existing subscription
func (o *Order) IsRenewal() bool {
	return o.Kind == OrderKindRenewal
}

// IsSubscriptionOrRenewal is true for orders that start or renew a subscription
func (o *Order) IsSubscriptionOrRenewal() bool {
	return o.ContainsSubscription || o.IsRenewal()
}

// IsPaidViaGateway reports whether the order uses this integration as payment method
func (o *Order) IsPaidViaGateway() bool {
	return o.PaymentMethod == GatewayID
}

// NeedsPayment follows the host rule: positive total in a payable status.
// PaidAt is not consulted; a renewal activated early and then failed is
// charged again. Pre-orders charged upon release stay payable while pre-ordered.
func (o *Order) NeedsPayment() bool {
	if !o.Total.IsPositive() {
		return false
	}
	switch o.Status {
	case OrderStatusPending, OrderStatusFailed:
		return true
	case OrderStatusPreOrdered:
		return o.ChargedUponRelease()
	}
	return false
}

// CanCompletePayment lists the statuses the host moves to processing when a
// payment completes
func CanCompletePayment(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusOnHold, OrderStatusFailed, OrderStatusCancelled, OrderStatusPreOrdered:
		return true
	}
	return false
}

// ChargedUponRelease reports whether payment is deferred until pre-order
// release. Such orders always need a reusable mandate.
func (o *Order) ChargedUponRelease() bool {
	return o.PreOrder == PreOrderUponRelease
}

// IsActiveForStatusCheck reports whether the deferred status check may act on the order
func (o *Order) IsActiveForStatusCheck() bool {
	return o.Status == OrderStatusProcessing || o.Status == OrderStatusCompleted
}
