// Package models defines data structures for InvestX
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote source attribution. Stale marks a cached quote served past its TTL
// because the upstream provider was unavailable.
const (
	QuoteSourceLive  = "live"
	QuoteSourceCache = "cache"
	QuoteSourceStale = "stale"
)

// Quote holds a price snapshot for a symbol
type Quote struct {
	Symbol        string          `json:"symbol"`
	AssetType     AssetType       `json:"asset_type,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PreviousClose decimal.Decimal `json:"previous_close,omitempty"`
	Change        decimal.Decimal `json:"change,omitempty"`
	ChangePct     decimal.Decimal `json:"change_pct,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	Source        string          `json:"source,omitempty"`
}
