package domain

import (
	"encoding/json"
	"time"
)

// ResourceType tags a snapshot stored against an order
type ResourceType string

const (
	ResourceBillingRequest     ResourceType = "billing_request"
	ResourceBillingRequestFlow ResourceType = "billing_request_flow"
	ResourceMandate            ResourceType = "mandate"
	ResourcePayment            ResourceType = "payment"
	ResourceRefund             ResourceType = "refund"
)

// Valid reports whether t is one of the known resource types
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceBillingRequest, ResourceBillingRequestFlow, ResourceMandate, ResourcePayment, ResourceRefund:
		return true
	}
	return false
}

// Snapshot is the last-known JSON representation of a remote resource.
// Mandate snapshots hold only the id.
type Snapshot struct {
	OrderID    string
	Type       ResourceType
	ResourceID string
	Status     string
	Payload    json.RawMessage
	Version    int
	UpdatedAt  time.Time
}

// Decode unmarshals the snapshot payload into v
func (s *Snapshot) Decode(v interface{}) error {
	return json.Unmarshal(s.Payload, v)
}

// NewSnapshot builds a snapshot from a typed remote resource
func NewSnapshot(orderID string, t ResourceType, resourceID, status string, resource interface{}) (*Snapshot, error) {
	if t == ResourceMandate {
		resource = map[string]string{"id": resourceID}
		status = ""
	}
	payload, err := json.Marshal(resource)
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		OrderID:    orderID,
		Type:       t,
		ResourceID: resourceID,
		Status:     status,
		Payload:    payload,
	}, nil
}

// OrderNote is a human-readable audit line on an order
type OrderNote struct {
	OrderID   string
	Note      string
	CreatedAt time.Time
}
