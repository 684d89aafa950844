// Package models defines data structures for the InvestX ledger
package models

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Fixed-point precision for persisted values: currency at 2 decimal places,
// share quantities at 4. Average cost keeps 4 places so repeated buy merges
// do not drift.
const (
	CurrencyPrecision = 2
	SharesPrecision   = 4
)

// DustShares is the threshold below which a holding is removed rather than
// kept as a fractional dust row.
var DustShares = decimal.RequireFromString("0.01")

// RoundMoney rounds a currency amount to cents (half away from zero).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPrecision)
}

// RoundShares rounds a share quantity to 4 decimal places.
func RoundShares(d decimal.Decimal) decimal.Decimal {
	return d.Round(SharesPrecision)
}

// ParseMoney parses a decimal string into a currency amount rounded to cents.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid money amount %q: %w", s, err)
	}
	return RoundMoney(d), nil
}

// FormatUSD renders a currency amount for display, e.g. "$10,000.00".
// The decimal value stays the source of truth; this is presentation only.
func FormatUSD(d decimal.Decimal) string {
	cents := RoundMoney(d).Shift(CurrencyPrecision).IntPart()
	return money.New(cents, money.USD).Display()
}
