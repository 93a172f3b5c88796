package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxDescriptionLength      = 100
	subscriptionPaymentPrefix = "Subscription payment from: "
)

// PaymentDescription renders the human-readable description attached to
// remote payments and payment requests, e.g. "Order #42 (Mug × 2, Tee × 1)"
func PaymentDescription(order *Order) string {
	items := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, fmt.Sprintf("%s × %d", item.Name, item.Quantity))
	}

	desc := fmt.Sprintf("Order #%s", order.Number)
	if len(items) > 0 {
		desc = fmt.Sprintf("%s (%s)", desc, strings.Join(items, ", "))
	}
	if order.IsRenewal() {
		desc = subscriptionPaymentPrefix + desc
	}
	return truncate(desc, maxDescriptionLength)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
