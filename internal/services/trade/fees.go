package trade

import (
	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

// FeeRate is the flat commission charged on every order: 0.1% of notional.
// Buys add the fee to the cash debited, sells subtract it from the proceeds.
var FeeRate = decimal.RequireFromString("0.001")

// Fee returns the commission for an order of the given notional value,
// rounded to cents.
func Fee(notional decimal.Decimal) decimal.Decimal {
	return models.RoundMoney(notional.Mul(FeeRate))
}
