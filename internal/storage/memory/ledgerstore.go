// Package memory implements the ledger store in process memory. It mirrors
// the SurrealDB store's semantics — versioned rows, op-id idempotency,
// zero-share tombstones — behind a single mutex, for development and tests
// without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

// Store implements interfaces.LedgerStore with in-memory maps.
type Store struct {
	mu         sync.Mutex
	logger     *common.Logger
	portfolios map[string]*models.Portfolio
	holdings   map[string]*models.Holding
	trades     map[string]*models.Transaction
}

// NewStore creates an empty in-memory ledger store.
func NewStore(logger *common.Logger) *Store {
	return &Store{
		logger:     logger,
		portfolios: make(map[string]*models.Portfolio),
		holdings:   make(map[string]*models.Holding),
		trades:     make(map[string]*models.Transaction),
	}
}

func clonePortfolio(p *models.Portfolio) *models.Portfolio {
	c := *p
	return &c
}

func cloneHolding(h *models.Holding) *models.Holding {
	c := *h
	return &c
}

func cloneTransaction(tx *models.Transaction) *models.Transaction {
	c := *tx
	if tx.RealizedGainLoss != nil {
		gain := *tx.RealizedGainLoss
		c.RealizedGainLoss = &gain
	}
	return &c
}

func (s *Store) ProvisionPortfolio(_ context.Context, userID string, startingBalance decimal.Decimal) (*models.Portfolio, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}
	if startingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: starting balance cannot be negative", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.SimulationPortfolioID(userID)
	if existing, ok := s.portfolios[id]; ok {
		return clonePortfolio(existing), nil
	}

	now := time.Now().UTC()
	starting := models.RoundMoney(startingBalance)
	p := &models.Portfolio{
		ID:              id,
		UserID:          userID,
		Mode:            models.ModeSimulation,
		CashBalance:     starting,
		StartingBalance: starting,
		Version:         1,
		LastOp:          "provision",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.portfolios[id] = p

	s.logger.Debug().
		Str("portfolio", id).
		Str("user", userID).
		Msg("Simulation portfolio provisioned in memory")
	return clonePortfolio(p), nil
}

func (s *Store) GetPortfolio(_ context.Context, portfolioID string) (*models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[portfolioID]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}
	return clonePortfolio(p), nil
}

func (s *Store) DebitCash(_ context.Context, portfolioID string, amount decimal.Decimal, op string) (*models.Portfolio, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: debit amount must be positive", models.ErrInvalidInput)
	}
	amount = models.RoundMoney(amount)
	return s.mutateCash(portfolioID, op, func(p *models.Portfolio) (decimal.Decimal, error) {
		next := p.CashBalance.Sub(amount)
		if next.IsNegative() {
			return decimal.Zero, &models.InsufficientFundsError{Required: amount, Available: p.CashBalance}
		}
		return next, nil
	})
}

func (s *Store) CreditCash(_ context.Context, portfolioID string, amount decimal.Decimal, op string) (*models.Portfolio, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit amount must be positive", models.ErrInvalidInput)
	}
	amount = models.RoundMoney(amount)
	return s.mutateCash(portfolioID, op, func(p *models.Portfolio) (decimal.Decimal, error) {
		return p.CashBalance.Add(amount), nil
	})
}

func (s *Store) ResetCash(_ context.Context, portfolioID string, op string) (*models.Portfolio, error) {
	return s.mutateCash(portfolioID, op, func(p *models.Portfolio) (decimal.Decimal, error) {
		return p.StartingBalance, nil
	})
}

func (s *Store) mutateCash(portfolioID, op string, compute func(p *models.Portfolio) (decimal.Decimal, error)) (*models.Portfolio, error) {
	if op == "" {
		return nil, fmt.Errorf("%w: op id is required", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.portfolios[portfolioID]
	if !ok {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}
	if p.LastOp == op {
		return clonePortfolio(p), nil
	}

	next, err := compute(p)
	if err != nil {
		return nil, err
	}

	p.CashBalance = models.RoundMoney(next)
	p.Version++
	p.LastOp = op
	p.UpdatedAt = time.Now().UTC()
	return clonePortfolio(p), nil
}

func (s *Store) GetHolding(_ context.Context, portfolioID, symbol string) (*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.holdings[models.HoldingID(portfolioID, symbol)]
	if !ok || h.Shares.IsZero() {
		return nil, fmt.Errorf("holding %s in %s: %w", strings.ToUpper(symbol), portfolioID, models.ErrNotFound)
	}
	return cloneHolding(h), nil
}

func (s *Store) ListHoldings(_ context.Context, portfolioID string) ([]*models.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var holdings []*models.Holding
	for _, h := range s.holdings {
		if h.PortfolioID != portfolioID || h.Shares.IsZero() {
			continue
		}
		holdings = append(holdings, cloneHolding(h))
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}

func (s *Store) UpsertHolding(_ context.Context, portfolioID, symbol string, assetType models.AssetType, addShares, price decimal.Decimal, op string) (*models.Holding, error) {
	if op == "" {
		return nil, fmt.Errorf("%w: op id is required", models.ErrInvalidInput)
	}
	if !addShares.IsPositive() {
		return nil, fmt.Errorf("%w: added shares must be positive", models.ErrInvalidInput)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive", models.ErrInvalidInput)
	}
	addShares = models.RoundShares(addShares)
	price = models.RoundMoney(price)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.HoldingID(portfolioID, symbol)
	now := time.Now().UTC()

	h, ok := s.holdings[id]
	if !ok {
		h = &models.Holding{
			ID:          id,
			PortfolioID: portfolioID,
			Symbol:      strings.ToUpper(symbol),
			AssetType:   assetType,
			Shares:      addShares,
			AverageCost: price,
			Version:     1,
			LastOp:      op,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.holdings[id] = h
		return cloneHolding(h), nil
	}

	if h.LastOp == op {
		return cloneHolding(h), nil
	}

	// A zero-share tombstone merges like a fresh buy.
	h.Shares, h.AverageCost = models.WeightedAverageCost(h.Shares, h.AverageCost, addShares, price)
	h.Version++
	h.LastOp = op
	h.UpdatedAt = now
	return cloneHolding(h), nil
}

func (s *Store) ReduceHolding(_ context.Context, portfolioID, symbol string, shares decimal.Decimal, op string) (*models.Holding, error) {
	if op == "" {
		return nil, fmt.Errorf("%w: op id is required", models.ErrInvalidInput)
	}
	if !shares.IsPositive() {
		return nil, fmt.Errorf("%w: shares to reduce must be positive", models.ErrInvalidInput)
	}
	shares = models.RoundShares(shares)
	upper := strings.ToUpper(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := models.HoldingID(portfolioID, symbol)
	h, ok := s.holdings[id]
	if !ok {
		return nil, &models.InsufficientSharesError{Symbol: upper, Requested: shares, Owned: decimal.Zero}
	}

	if h.LastOp == op {
		if h.Shares.IsZero() {
			return nil, nil
		}
		return cloneHolding(h), nil
	}

	if h.Shares.LessThan(shares) {
		return nil, &models.InsufficientSharesError{Symbol: upper, Requested: shares, Owned: h.Shares}
	}

	remaining := models.RoundShares(h.Shares.Sub(shares))
	h.Version++
	h.LastOp = op
	h.UpdatedAt = time.Now().UTC()

	if remaining.LessThan(models.DustShares) {
		// Keep the row as a zero-share tombstone so a retried reduce with
		// this op resolves to "removed" instead of "never existed".
		h.Shares = decimal.Zero
		h.AverageCost = decimal.Zero
		return nil, nil
	}

	h.Shares = remaining
	return cloneHolding(h), nil
}

func (s *Store) DeleteHoldings(_ context.Context, portfolioID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, h := range s.holdings {
		if h.PortfolioID != portfolioID {
			continue
		}
		if !h.Shares.IsZero() {
			count++
		}
		delete(s.holdings, id)
	}
	return count, nil
}

func (s *Store) AppendTransaction(_ context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", models.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[tx.ID] = cloneTransaction(tx)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, portfolioID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var txs []*models.Transaction
	for _, tx := range s.trades {
		if tx.PortfolioID == portfolioID {
			txs = append(txs, cloneTransaction(tx))
		}
	}
	// ULID ids are lexicographically time-ordered
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })
	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Store) PurgeTransactions(_ context.Context, portfolioID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, tx := range s.trades {
		if tx.PortfolioID != portfolioID {
			continue
		}
		delete(s.trades, id)
		count++
	}
	return count, nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.LedgerStore = (*Store)(nil)
