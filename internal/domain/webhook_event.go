package domain

import "time"

// EventLinks references the remote resources an event is about
type EventLinks struct {
	Mandate        string `json:"mandate,omitempty"`
	NewMandate     string `json:"new_mandate,omitempty"`
	Payment        string `json:"payment,omitempty"`
	Refund         string `json:"refund,omitempty"`
	BillingRequest string `json:"billing_request,omitempty"`
	Subscription   string `json:"subscription,omitempty"`
	Customer       string `json:"customer,omitempty"`
}

// EventDetails explains why an event happened
type EventDetails struct {
	Origin           string `json:"origin,omitempty"`
	Cause            string `json:"cause,omitempty"`
	Description      string `json:"description,omitempty"`
	Scheme           string `json:"scheme,omitempty"`
	ReasonCode       string `json:"reason_code,omitempty"`
	WillAttemptRetry bool   `json:"will_attempt_retry,omitempty"`
}

// Event is a single notification inside a webhook delivery
type Event struct {
	ID           string            `json:"id"`
	ResourceType string            `json:"resource_type"`
	Action       string            `json:"action"`
	Links        EventLinks        `json:"links"`
	Details      EventDetails      `json:"details"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// WebhookPayload is the body of a webhook delivery
type WebhookPayload struct {
	Events []Event `json:"events"`
	Meta   struct {
		WebhookID string `json:"webhook_id"`
	} `json:"meta"`
}

// Cause reported when a payment failed because its mandate went away
const CauseMandateCancelled = "mandate_cancelled"

// EventKind is the closed set of (resource_type, action) pairs the
// dispatcher reacts to. Payment actions without their own kind parse to
// EventPaymentOther; anything else parses to EventUnknown.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventMandateReplaced
	EventMandateCancelled
	EventMandateFailed
	EventMandateExpired
	EventMandateBlocked
	EventPaymentPaidOut
	EventPaymentConfirmed
	EventPaymentFailed
	EventPaymentCancelled
	EventPaymentChargedBack
	EventPaymentChargebackSettled
	EventPaymentOther
	EventRefund
	EventBillingRequestFulfilled
	EventBillingRequestCancelled
	EventSubscriptionPaymentCreated
	EventSubscriptionCancelled
)

var eventKinds = map[string]map[string]EventKind{
	"mandates": {
		"replaced":  EventMandateReplaced,
		"cancelled": EventMandateCancelled,
		"failed":    EventMandateFailed,
		"expired":   EventMandateExpired,
		"blocked":   EventMandateBlocked,
	},
	"payments": {
		"paid_out":           EventPaymentPaidOut,
		"confirmed":          EventPaymentConfirmed,
		"failed":             EventPaymentFailed,
		"cancelled":          EventPaymentCancelled,
		"charged_back":       EventPaymentChargedBack,
		"chargeback_settled": EventPaymentChargebackSettled,
	},
	"billing_requests": {
		"fulfilled": EventBillingRequestFulfilled,
		"cancelled": EventBillingRequestCancelled,
	},
	"subscriptions": {
		"payment_created": EventSubscriptionPaymentCreated,
		"cancelled":       EventSubscriptionCancelled,
	},
}

// ParseEventKind classifies an event. Every refund action maps to EventRefund.
func ParseEventKind(resourceType, action string) EventKind {
	if resourceType == "refunds" {
		return EventRefund
	}
	if actions, ok := eventKinds[resourceType]; ok {
		if kind, ok := actions[action]; ok {
			return kind
		}
	}
	if resourceType == "payments" {
		return EventPaymentOther
	}
	return EventUnknown
}

// Kind classifies the event
func (e *Event) Kind() EventKind {
	return ParseEventKind(e.ResourceType, e.Action)
}

// IsMandateRemoval reports whether the mandate can no longer be charged
func (k EventKind) IsMandateRemoval() bool {
	switch k {
	case EventMandateCancelled, EventMandateFailed, EventMandateExpired, EventMandateBlocked:
		return true
	}
	return false
}

// IsPaymentEvent reports whether the kind concerns a payment
func (k EventKind) IsPaymentEvent() bool {
	return k >= EventPaymentPaidOut && k <= EventPaymentOther
}

func (k EventKind) String() string {
	switch k {
	case EventMandateReplaced:
		return "mandates.replaced"
	case EventMandateCancelled:
		return "mandates.cancelled"
	case EventMandateFailed:
		return "mandates.failed"
	case EventMandateExpired:
		return "mandates.expired"
	case EventMandateBlocked:
		return "mandates.blocked"
	case EventPaymentPaidOut:
		return "payments.paid_out"
	case EventPaymentConfirmed:
		return "payments.confirmed"
	case EventPaymentFailed:
		return "payments.failed"
	case EventPaymentCancelled:
		return "payments.cancelled"
	case EventPaymentChargedBack:
		return "payments.charged_back"
	case EventPaymentChargebackSettled:
		return "payments.chargeback_settled"
	case EventPaymentOther:
		return "payments"
	case EventRefund:
		return "refunds"
	case EventBillingRequestFulfilled:
		return "billing_requests.fulfilled"
	case EventBillingRequestCancelled:
		return "billing_requests.cancelled"
	case EventSubscriptionPaymentCreated:
		return "subscriptions.payment_created"
	case EventSubscriptionCancelled:
		return "subscriptions.cancelled"
	default:
		return "unknown"
	}
}
