// Package models defines data structures for InvestX
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioMode distinguishes the simulation ledger from any future
// real-money mode. Only simulation portfolios are writable.
type PortfolioMode string

const (
	ModeSimulation PortfolioMode = "simulation"
)

// AssetType classifies what a holding tracks
type AssetType string

const (
	AssetStock  AssetType = "stock"
	AssetCrypto AssetType = "crypto"
	AssetETF    AssetType = "etf"
)

// NormalizeAssetType maps free-form client input to a known asset type.
// Returns AssetStock for empty/unknown values.
func NormalizeAssetType(s string) AssetType {
	switch AssetType(strings.ToLower(strings.TrimSpace(s))) {
	case AssetCrypto:
		return AssetCrypto
	case AssetETF:
		return AssetETF
	default:
		return AssetStock
	}
}

// Portfolio represents a user's virtual cash account. CashBalance and
// StartingBalance are exact decimal amounts at cents precision.
//
// Version increments on every successful write and guards conditional
// updates. LastOp records the operation id of the write that produced the
// current row state, so a retried mutation can recognize its own earlier
// success instead of applying twice.
type Portfolio struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Mode            PortfolioMode   `json:"mode"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	Version         int64           `json:"version"`
	LastOp          string          `json:"last_op,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// SimulationPortfolioID returns the deterministic portfolio id for a user's
// simulation account. One simulation portfolio per user, so provisioning
// upserts by id instead of querying.
func SimulationPortfolioID(userID string) string {
	return userID + "_sim"
}

// Holding represents a position in a single symbol within a portfolio.
// Shares carries 4 decimal places; AverageCost is the weighted-average
// purchase price, also at 4 places so repeated merges do not drift. Only
// buys change AverageCost; sales reduce Shares and leave it untouched.
type Holding struct {
	ID          string          `json:"id"`
	PortfolioID string          `json:"portfolio_id"`
	Symbol      string          `json:"symbol"`
	AssetType   AssetType       `json:"asset_type"`
	Shares      decimal.Decimal `json:"shares"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Version     int64           `json:"version"`
	LastOp      string          `json:"last_op,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HoldingID returns the deterministic holding id for a symbol within a
// portfolio. At most one holding row per (portfolio, symbol) by construction.
func HoldingID(portfolioID, symbol string) string {
	return portfolioID + "_" + strings.ToUpper(symbol)
}

// IsDust reports whether the position is below the removal threshold.
func (h *Holding) IsDust() bool {
	return h.Shares.LessThan(DustShares)
}

// CostBasis returns the total amount paid for the current position.
func (h *Holding) CostBasis() decimal.Decimal {
	return RoundMoney(h.Shares.Mul(h.AverageCost))
}

// MarketValue returns the position's worth at the given price.
func (h *Holding) MarketValue(price decimal.Decimal) decimal.Decimal {
	return RoundMoney(h.Shares.Mul(price))
}

// HoldingValue decorates a holding with its current market valuation,
// computed on response and never persisted.
type HoldingValue struct {
	Holding
	CurrentPrice       decimal.Decimal `json:"current_price"`
	MarketValue        decimal.Decimal `json:"market_value"`
	UnrealizedGainLoss decimal.Decimal `json:"unrealized_gain_loss"`
}

// PortfolioSummary is a portfolio with its holdings valued at current
// prices. NetWorth is cash plus the market value of all holdings.
type PortfolioSummary struct {
	Portfolio
	Holdings      []HoldingValue  `json:"holdings"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	NetWorth      decimal.Decimal `json:"net_worth"`
	DisplayWorth  string          `json:"display_worth,omitempty"`
}

// TransactionType is the side of a completed trade
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// Transaction is an immutable audit record of an executed trade. TotalAmount
// is signed from the cash account's point of view: negative for buys (cash
// out, fee included), positive for sells (net proceeds in).
//
// The id is a ULID minted before any ledger write begins and doubles as the
// append idempotency key, so a retried append lands on the same row.
// RealizedGainLoss is populated for sells only; nil for buys.
type Transaction struct {
	ID               string           `json:"id"`
	PortfolioID      string           `json:"portfolio_id"`
	UserID           string           `json:"user_id"`
	Type             TransactionType  `json:"type"`
	Symbol           string           `json:"symbol"`
	AssetType        AssetType        `json:"asset_type,omitempty"`
	Shares           decimal.Decimal  `json:"shares"`
	PricePerShare    decimal.Decimal  `json:"price_per_share"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	Fees             decimal.Decimal  `json:"fees"`
	RealizedGainLoss *decimal.Decimal `json:"realized_gain_loss,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}
