package utils

import (
	"github.com/shopspring/decimal"
)

// Both ledger currencies use two decimal places for display. Internal
// arithmetic stays exact; rounding happens only at the formatting edge.
const currencyPrecision = 2

// FormatMXN formats a home-currency amount, e.g. "MX$530.00".
func FormatMXN(amount decimal.Decimal) string {
	return "MX$" + amount.StringFixed(currencyPrecision)
}

// FormatHTG formats a destination-currency amount, e.g. "G2925.00".
func FormatHTG(amount decimal.Decimal) string {
	return "G" + amount.StringFixed(currencyPrecision)
}
