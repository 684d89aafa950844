package surrealdb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

// Ledger table names
const (
	tablePortfolio = "portfolio"
	tableHolding   = "holding"
	tableTrade     = "trade"
)

// Row types mirror the domain models with decimal amounts persisted as
// strings: the driver's CBOR codec cannot round-trip decimal.Decimal, and
// strings keep amounts exact and inspectable in the database. Rows carry
// their own id field rather than reading SurrealDB's record id.

type portfolioRow struct {
	PortfolioID     string    `json:"portfolio_id"`
	UserID          string    `json:"user_id"`
	Mode            string    `json:"mode"`
	CashBalance     string    `json:"cash_balance"`
	StartingBalance string    `json:"starting_balance"`
	Version         int64     `json:"version"`
	LastOp          string    `json:"last_op"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r *portfolioRow) toModel() (*models.Portfolio, error) {
	cash, err := decimal.NewFromString(r.CashBalance)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: bad cash_balance %q: %w", r.PortfolioID, r.CashBalance, err)
	}
	starting, err := decimal.NewFromString(r.StartingBalance)
	if err != nil {
		return nil, fmt.Errorf("portfolio %s: bad starting_balance %q: %w", r.PortfolioID, r.StartingBalance, err)
	}
	return &models.Portfolio{
		ID:              r.PortfolioID,
		UserID:          r.UserID,
		Mode:            models.PortfolioMode(r.Mode),
		CashBalance:     cash,
		StartingBalance: starting,
		Version:         r.Version,
		LastOp:          r.LastOp,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}, nil
}

type holdingRow struct {
	HoldingID   string    `json:"holding_id"`
	PortfolioID string    `json:"portfolio_id"`
	Symbol      string    `json:"symbol"`
	AssetType   string    `json:"asset_type"`
	Shares      string    `json:"shares"`
	AverageCost string    `json:"average_cost"`
	Version     int64     `json:"version"`
	LastOp      string    `json:"last_op"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// isTombstone reports whether this row is a completed removal: a sell that
// emptied the position writes shares = "0" before the row is swept, so a
// retried reduce can tell "removed by me" from "never existed". Readers
// treat tombstones as absent.
func (r *holdingRow) isTombstone() bool {
	shares, err := decimal.NewFromString(r.Shares)
	return err == nil && shares.IsZero()
}

// position parses the row's share count and average cost.
func (r *holdingRow) position() (decimal.Decimal, decimal.Decimal, error) {
	shares, err := decimal.NewFromString(r.Shares)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("holding %s: bad shares %q: %w", r.HoldingID, r.Shares, err)
	}
	avg, err := decimal.NewFromString(r.AverageCost)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("holding %s: bad average_cost %q: %w", r.HoldingID, r.AverageCost, err)
	}
	return shares, avg, nil
}

func (r *holdingRow) toModel() (*models.Holding, error) {
	shares, avg, err := r.position()
	if err != nil {
		return nil, err
	}
	return &models.Holding{
		ID:          r.HoldingID,
		PortfolioID: r.PortfolioID,
		Symbol:      r.Symbol,
		AssetType:   models.AssetType(r.AssetType),
		Shares:      shares,
		AverageCost: avg,
		Version:     r.Version,
		LastOp:      r.LastOp,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

type transactionRow struct {
	TransactionID    string    `json:"transaction_id"`
	PortfolioID      string    `json:"portfolio_id"`
	UserID           string    `json:"user_id"`
	Type             string    `json:"type"`
	Symbol           string    `json:"symbol"`
	AssetType        string    `json:"asset_type"`
	Shares           string    `json:"shares"`
	PricePerShare    string    `json:"price_per_share"`
	TotalAmount      string    `json:"total_amount"`
	Fees             string    `json:"fees"`
	RealizedGainLoss string    `json:"realized_gain_loss"`
	Timestamp        time.Time `json:"timestamp"`
}

func newTransactionRow(tx *models.Transaction) *transactionRow {
	row := &transactionRow{
		TransactionID: tx.ID,
		PortfolioID:   tx.PortfolioID,
		UserID:        tx.UserID,
		Type:          string(tx.Type),
		Symbol:        tx.Symbol,
		AssetType:     string(tx.AssetType),
		Shares:        tx.Shares.String(),
		PricePerShare: tx.PricePerShare.String(),
		TotalAmount:   tx.TotalAmount.String(),
		Fees:          tx.Fees.String(),
		Timestamp:     tx.Timestamp,
	}
	if tx.RealizedGainLoss != nil {
		row.RealizedGainLoss = tx.RealizedGainLoss.String()
	}
	return row
}

func (r *transactionRow) toModel() (*models.Transaction, error) {
	shares, err := decimal.NewFromString(r.Shares)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: bad shares %q: %w", r.TransactionID, r.Shares, err)
	}
	price, err := decimal.NewFromString(r.PricePerShare)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: bad price_per_share %q: %w", r.TransactionID, r.PricePerShare, err)
	}
	total, err := decimal.NewFromString(r.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: bad total_amount %q: %w", r.TransactionID, r.TotalAmount, err)
	}
	fees, err := decimal.NewFromString(r.Fees)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: bad fees %q: %w", r.TransactionID, r.Fees, err)
	}
	tx := &models.Transaction{
		ID:            r.TransactionID,
		PortfolioID:   r.PortfolioID,
		UserID:        r.UserID,
		Type:          models.TransactionType(r.Type),
		Symbol:        r.Symbol,
		AssetType:     models.AssetType(r.AssetType),
		Shares:        shares,
		PricePerShare: price,
		TotalAmount:   total,
		Fees:          fees,
		Timestamp:     r.Timestamp,
	}
	if r.RealizedGainLoss != "" {
		gain, err := decimal.NewFromString(r.RealizedGainLoss)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad realized_gain_loss %q: %w", r.TransactionID, r.RealizedGainLoss, err)
		}
		tx.RealizedGainLoss = &gain
	}
	return tx, nil
}
