package domain

import (
	"fmt"
	"strings"
	"time"
)

// PaymentToken is a saved, reusable mandate owned by a customer
type PaymentToken struct {
	ID                  string
	CustomerID          string
	Gateway             string
	MandateID           string
	Scheme              string
	AccountHolderName   string
	AccountNumberEnding string
	BankName            string
	IsDefault           bool
	CreatedAt           time.Time
}

// DisplayName renders the token the way checkout lists saved bank accounts
func (t *PaymentToken) DisplayName() string {
	scheme := strings.ToUpper(t.Scheme)
	if t.AccountNumberEnding == "" {
		return fmt.Sprintf("%s Direct Debit", scheme)
	}
	return fmt.Sprintf("%s Direct Debit (%s ending in %s)", scheme, t.BankName, t.AccountNumberEnding)
}

// ValidateMandateID checks a manually entered mandate reference
func ValidateMandateID(mandateID string) error {
	if mandateID == "" {
		return NewDomainError(ErrorCodeValidationMissingField, `a "GoCardless Mandate ID" value is required`)
	}
	if !strings.HasPrefix(mandateID, "MD") {
		return NewDomainError(ErrorCodeValidationFailed, `invalid GoCardless Mandate ID, a valid mandate ID must begin with "MD"`)
	}
	return nil
}
