package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"ISK": true,
}

// CurrencyDecimals returns the number of minor-unit digits for a currency
func CurrencyDecimals(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// ToMinorUnits converts a decimal amount to the integer representation the
// remote API expects (pence, cents, øre), rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyDecimals(currency)).Round(0).IntPart()
}

// FromMinorUnits converts an integer minor-unit amount back to a decimal
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	return decimal.New(amount, -CurrencyDecimals(currency))
}
