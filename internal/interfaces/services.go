// Package interfaces defines service contracts for InvestX
package interfaces

import (
	"context"

	"github.com/rtirumala2025/investx/internal/models"
)

// TradeService executes orders against the virtual ledger
type TradeService interface {
	// Execute runs a buy or sell through the full pipeline: validate,
	// compute costs, mutate the ledger, fire side effects. The request's
	// Side selects the direction. Side-effect failures surface as warnings
	// on the result, never as errors.
	Execute(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error)
}

// PortfolioService manages simulation portfolios
type PortfolioService interface {
	// GetOrProvision returns the user's simulation portfolio, creating it
	// with the configured starting balance on first access.
	GetOrProvision(ctx context.Context, userID string) (*models.Portfolio, error)

	// GetSummary values the portfolio at current market prices
	GetSummary(ctx context.Context, userID, portfolioID string) (*models.PortfolioSummary, error)

	// ListTransactions returns the trade journal, newest first
	ListTransactions(ctx context.Context, userID, portfolioID string, limit int) ([]*models.Transaction, error)

	// Reset removes all holdings and restores the starting cash balance.
	// Transaction history is retained.
	Reset(ctx context.Context, userID, portfolioID string) (*models.ResetResult, error)
}

// QuoteService serves prices with short-TTL caching
type QuoteService interface {
	// GetQuote returns the current price for a symbol, from cache when
	// fresh, falling back to the last known price when the upstream
	// provider is unavailable.
	GetQuote(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error)

	// GetQuotes fetches quotes for multiple symbols; missing symbols are
	// absent from the result rather than failing the batch.
	GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error)
}
