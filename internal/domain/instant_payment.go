package domain

// Payment request schemes the remote system can use for instant bank payments
const (
	SchemeFasterPayments            = "faster_payments"
	SchemeSepaCreditTransfer        = "sepa_credit_transfer"
	SchemeSepaInstantCreditTransfer = "sepa_instant_credit_transfer"
)

// InstantPaymentRule lists the billing countries and schemes (any one of
// which must be active) that enable instant payments for a currency
type InstantPaymentRule struct {
	Countries []string
	Schemes   []string
}

// InstantPaymentPolicy maps currency to its instant-payment rule
type InstantPaymentPolicy map[string]InstantPaymentRule

// DefaultInstantPaymentPolicy returns the supported currency/country combinations
func DefaultInstantPaymentPolicy() InstantPaymentPolicy {
	return InstantPaymentPolicy{
		"EUR": {
			Countries: []string{"DE", "FR"},
			Schemes:   []string{SchemeSepaCreditTransfer, SchemeSepaInstantCreditTransfer},
		},
		"GBP": {
			Countries: []string{"GB"},
			Schemes:   []string{SchemeFasterPayments},
		},
	}
}

// Supports reports whether an order in currency billed to country can use
// instant payments given the currently active schemes
func (p InstantPaymentPolicy) Supports(currency, country string, activeSchemes []string) bool {
	rule, ok := p[currency]
	if !ok {
		return false
	}
	if !contains(rule.Countries, country) {
		return false
	}
	for _, scheme := range rule.Schemes {
		if contains(activeSchemes, scheme) {
			return true
		}
	}
	return false
}

// PaymentRequestSchemes filters scheme identifiers down to active instant-payment schemes
func PaymentRequestSchemes(identifiers []SchemeIdentifier) []string {
	known := []string{SchemeFasterPayments, SchemeSepaCreditTransfer, SchemeSepaInstantCreditTransfer}
	var schemes []string
	for _, id := range identifiers {
		if id.Status == "active" && contains(known, id.Scheme) {
			schemes = append(schemes, id.Scheme)
		}
	}
	return schemes
}

// ActiveSchemeIdentifiers drops identifiers that are not active or have no scheme
func ActiveSchemeIdentifiers(identifiers []SchemeIdentifier) []SchemeIdentifier {
	active := make([]SchemeIdentifier, 0, len(identifiers))
	for _, id := range identifiers {
		if id.Scheme != "" && id.Status == "active" {
			active = append(active, id)
		}
	}
	return active
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
