package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeState tracks an order through the execution pipeline. States only
// move forward; Failed is terminal and records where the pipeline stopped.
type TradeState string

const (
	TradeStateValidating  TradeState = "validating"
	TradeStateComputing   TradeState = "computing"
	TradeStateMutating    TradeState = "mutating"
	TradeStateSideEffects TradeState = "side_effects"
	TradeStateDone        TradeState = "done"
	TradeStateFailed      TradeState = "failed"
)

var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,11}$`)

// TradeRequest is a validated order to buy or sell. Price zero means the
// executor fills it from the quote service at execution time. PortfolioID
// empty means the user's simulation portfolio, provisioned on first use;
// when set it must belong to UserID or the trade is rejected.
type TradeRequest struct {
	UserID      string          `json:"user_id"`
	PortfolioID string          `json:"portfolio_id,omitempty"`
	Side        TransactionType `json:"side"`
	Symbol      string          `json:"symbol"`
	AssetType   AssetType       `json:"asset_type,omitempty"`
	Shares      decimal.Decimal `json:"shares"`
	Price       decimal.Decimal `json:"price,omitempty"`
}

// Normalize canonicalizes client input: symbols are uppercased and trimmed,
// the asset type mapped to a known value. Call before Validate.
func (r *TradeRequest) Normalize() {
	r.Symbol = strings.ToUpper(strings.TrimSpace(r.Symbol))
	r.AssetType = NormalizeAssetType(string(r.AssetType))
}

// Validate checks the request before any state is touched. All violations
// wrap ErrInvalidInput.
func (r *TradeRequest) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if r.Side != TransactionBuy && r.Side != TransactionSell {
		return fmt.Errorf("%w: side must be %q or %q", ErrInvalidInput, TransactionBuy, TransactionSell)
	}
	if !symbolPattern.MatchString(r.Symbol) {
		return fmt.Errorf("%w: symbol %q is not a valid ticker", ErrInvalidInput, r.Symbol)
	}
	if !r.Shares.IsPositive() {
		return fmt.Errorf("%w: shares must be positive", ErrInvalidInput)
	}
	if !r.Shares.Equal(RoundShares(r.Shares)) {
		return fmt.Errorf("%w: shares precision is limited to %d decimal places", ErrInvalidInput, SharesPrecision)
	}
	if r.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	return nil
}

// TradeResult is the outcome of a completed trade. For buys TotalCost is
// notional + fee (the cash debited); for sells Proceeds is notional - fee
// (the cash credited) and RealizedGainLoss is set.
type TradeResult struct {
	TransactionID    string           `json:"transaction_id"`
	PortfolioID      string           `json:"portfolio_id"`
	State            TradeState       `json:"state"`
	Side             TransactionType  `json:"side"`
	Symbol           string           `json:"symbol"`
	Shares           decimal.Decimal  `json:"shares"`
	Price            decimal.Decimal  `json:"price"`
	Notional         decimal.Decimal  `json:"notional"`
	Fee              decimal.Decimal  `json:"fee"`
	TotalCost        decimal.Decimal  `json:"total_cost,omitempty"`
	Proceeds         decimal.Decimal  `json:"proceeds,omitempty"`
	RealizedGainLoss *decimal.Decimal `json:"realized_gain_loss,omitempty"`
	CashBalance      decimal.Decimal  `json:"cash_balance"`
	Holding          *Holding         `json:"holding,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
}

// ResetResult reports the outcome of wiping a portfolio back to its
// starting balance. Transaction history is retained for the audit trail.
type ResetResult struct {
	PortfolioID     string          `json:"portfolio_id"`
	CashBalance     decimal.Decimal `json:"cash_balance"`
	HoldingsRemoved int             `json:"holdings_removed"`
	Warnings        []string        `json:"warnings,omitempty"`
}
