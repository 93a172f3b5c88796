package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrder_NeedsPayment(t *testing.T) {
	paidAt := time.Now()

	tests := []struct {
		name     string
		order    Order
		expected bool
	}{
		{
			name:     "pending_with_total",
			order:    Order{Status: OrderStatusPending, Total: decimal.NewFromInt(10)},
			expected: true,
		},
		{
			name:     "failed_with_total",
			order:    Order{Status: OrderStatusFailed, Total: decimal.NewFromInt(10)},
			expected: true,
		},
		{
			name:     "failed_after_early_activation",
			order:    Order{Status: OrderStatusFailed, Total: decimal.NewFromInt(10), PaidAt: &paidAt},
			expected: true,
		},
		{
			name:     "processing",
			order:    Order{Status: OrderStatusProcessing, Total: decimal.NewFromInt(10), PaidAt: &paidAt},
			expected: false,
		},
		{
			name:     "zero_total",
			order:    Order{Status: OrderStatusPending, Total: decimal.Zero},
			expected: false,
		},
		{
			name:     "pre_ordered_upon_release",
			order:    Order{Status: OrderStatusPreOrdered, PreOrder: PreOrderUponRelease, Total: decimal.NewFromInt(10)},
			expected: true,
		},
		{
			name:     "pre_ordered_upfront",
			order:    Order{Status: OrderStatusPreOrdered, PreOrder: PreOrderUpfront, Total: decimal.NewFromInt(10)},
			expected: false,
		},
		{
			name:     "on_hold",
			order:    Order{Status: OrderStatusOnHold, Total: decimal.NewFromInt(10)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.order.NeedsPayment())
		})
	}
}

func TestOrder_IsSubscriptionOrRenewal(t *testing.T) {
	assert.True(t, (&Order{Kind: OrderKindRenewal}).IsSubscriptionOrRenewal())
	assert.True(t, (&Order{Kind: OrderKindOrder, ContainsSubscription: true}).IsSubscriptionOrRenewal())
	assert.False(t, (&Order{Kind: OrderKindOrder}).IsSubscriptionOrRenewal())
}

func TestOrder_IsActiveForStatusCheck(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusProcessing}).IsActiveForStatusCheck())
	assert.True(t, (&Order{Status: OrderStatusCompleted}).IsActiveForStatusCheck())
	assert.False(t, (&Order{Status: OrderStatusOnHold}).IsActiveForStatusCheck())
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		currency string
		expected int64
	}{
		{name: "whole_pounds", amount: "10.00", currency: "GBP", expected: 1000},
		{name: "dollars_and_cents", amount: "25.00", currency: "USD", expected: 2500},
		{name: "rounds_half_up", amount: "19.995", currency: "EUR", expected: 2000},
		{name: "float_trap", amount: "0.29", currency: "EUR", expected: 29},
		{name: "zero_decimal_currency", amount: "1500", currency: "JPY", expected: 1500},
		{name: "zero", amount: "0", currency: "GBP", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			assert.Equal(t, tt.expected, ToMinorUnits(amount, tt.currency))
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("12.34").Equal(FromMinorUnits(1234, "GBP")))
}

func TestPaymentDescription(t *testing.T) {
	t.Run("lists items", func(t *testing.T) {
		order := &Order{Number: "42", Items: []OrderItem{{Name: "Mug", Quantity: 2}, {Name: "Tee", Quantity: 1}}}
		assert.Equal(t, "Order #42 (Mug × 2, Tee × 1)", PaymentDescription(order))
	})

	t.Run("renewal prefix", func(t *testing.T) {
		order := &Order{Number: "7", Kind: OrderKindRenewal}
		assert.Equal(t, "Subscription payment from: Order #7", PaymentDescription(order))
	})

	t.Run("truncated to 100 characters", func(t *testing.T) {
		items := make([]OrderItem, 20)
		for i := range items {
			items[i] = OrderItem{Name: "A very long product name", Quantity: 1}
		}
		desc := PaymentDescription(&Order{Number: "1", Items: items})
		assert.Len(t, []rune(desc), 100)
	})
}
