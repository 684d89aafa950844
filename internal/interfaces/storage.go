// Package interfaces defines service contracts for InvestX
package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

// LedgerStore persists portfolios, holdings, and the transaction journal.
//
// The backend offers no multi-row transactions, so every mutation here is a
// single-row conditional write that is individually durable. Each mutating
// method takes an op id: rows remember the op that produced their current
// state, and re-running a mutation with the same op id after an ambiguous
// failure (timeout, lost ack) returns the already-written state without
// applying it twice. Callers therefore retry freely with the same op and
// mint a fresh op only for a genuinely new attempt.
//
// Mutations return ErrConcurrentModification when another writer got in
// first under a different op, and ErrTransientStore for backend failures
// that are safe to retry.
type LedgerStore interface {
	// Portfolios
	//
	// ProvisionPortfolio creates the user's simulation portfolio with the
	// given starting balance, or returns the existing one unchanged.
	ProvisionPortfolio(ctx context.Context, userID string, startingBalance decimal.Decimal) (*models.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error)

	// DebitCash subtracts amount from the cash balance, failing with
	// ErrInsufficientFunds when the balance would go negative. CreditCash
	// adds amount. ResetCash restores the starting balance. All three
	// return the resulting portfolio state.
	DebitCash(ctx context.Context, portfolioID string, amount decimal.Decimal, op string) (*models.Portfolio, error)
	CreditCash(ctx context.Context, portfolioID string, amount decimal.Decimal, op string) (*models.Portfolio, error)
	ResetCash(ctx context.Context, portfolioID string, op string) (*models.Portfolio, error)

	// Holdings
	//
	// GetHolding returns ErrNotFound when no position exists.
	GetHolding(ctx context.Context, portfolioID, symbol string) (*models.Holding, error)
	ListHoldings(ctx context.Context, portfolioID string) ([]*models.Holding, error)

	// UpsertHolding merges a buy into the position, creating it on first
	// purchase and recomputing the weighted-average cost otherwise.
	UpsertHolding(ctx context.Context, portfolioID, symbol string, assetType models.AssetType, addShares, price decimal.Decimal, op string) (*models.Holding, error)

	// ReduceHolding subtracts sold shares, failing with
	// ErrInsufficientShares when the position is smaller than the sale.
	// Positions reduced below the dust threshold are removed; the returned
	// holding is nil in that case.
	ReduceHolding(ctx context.Context, portfolioID, symbol string, shares decimal.Decimal, op string) (*models.Holding, error)

	// DeleteHoldings removes every position in the portfolio and returns
	// the count removed. Used by reset.
	DeleteHoldings(ctx context.Context, portfolioID string) (int, error)

	// Transactions
	//
	// AppendTransaction writes the journal record keyed by its id, so a
	// retried append with the same transaction lands on the same row.
	AppendTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, portfolioID string, limit int) ([]*models.Transaction, error)

	// PurgeTransactions permanently deletes the portfolio's journal and
	// returns the count removed. Reset never calls this; it exists for
	// explicit operator cleanup through the admin CLI.
	PurgeTransactions(ctx context.Context, portfolioID string) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
