package models

import "github.com/shopspring/decimal"

// WeightedAverageCost merges a buy into an existing position and returns the
// new share count and average cost:
//
//	newAverage = (shares*averageCost + addedShares*price) / (shares + addedShares)
//
// Shares are rounded to SharesPrecision and the average to SharesPrecision as
// well, so the merge is stable under repeated application. Selling never goes
// through here: a sale reduces shares and leaves the average cost untouched.
func WeightedAverageCost(shares, averageCost, addedShares, price decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	newShares := RoundShares(shares.Add(addedShares))
	if newShares.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	existingCost := shares.Mul(averageCost)
	addedCost := addedShares.Mul(price)
	newAverage := existingCost.Add(addedCost).DivRound(newShares, SharesPrecision)
	return newShares, newAverage
}

// RealizedGainLoss computes the net gain or loss of a sale against the
// position's average cost at the moment of the trade, with the fee charged
// against the gain:
//
//	(price - averageCost) * shares - fee
//
// Rounded to cents. A break-even sale therefore realizes a small loss equal
// to the fee.
func RealizedGainLoss(price, averageCost, shares, fee decimal.Decimal) decimal.Decimal {
	return RoundMoney(price.Sub(averageCost).Mul(shares).Sub(fee))
}
