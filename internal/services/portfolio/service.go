// Package portfolio provides read and lifecycle operations for simulation
// portfolios: provisioning, valuation, the trade journal, and reset.
package portfolio

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

// Service implements PortfolioService.
type Service struct {
	store           interfaces.LedgerStore
	quotes          interfaces.QuoteService
	gamify          interfaces.GamifyClient
	startingBalance decimal.Decimal
	logger          *common.Logger
}

// NewService creates a new portfolio service.
func NewService(
	store interfaces.LedgerStore,
	quotes interfaces.QuoteService,
	gamify interfaces.GamifyClient,
	startingBalance decimal.Decimal,
	logger *common.Logger,
) *Service {
	return &Service{
		store:           store,
		quotes:          quotes,
		gamify:          gamify,
		startingBalance: startingBalance,
		logger:          logger,
	}
}

// GetOrProvision returns the user's simulation portfolio, creating it with
// the configured starting balance on first access.
func (s *Service) GetOrProvision(ctx context.Context, userID string) (*models.Portfolio, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}
	p, err := s.store.ProvisionPortfolio(ctx, userID, s.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to provision portfolio: %w", err)
	}
	return p, nil
}

// GetSummary values the portfolio at current market prices. Positions the
// quote service cannot price right now are valued at cost so the summary
// degrades instead of failing.
func (s *Service) GetSummary(ctx context.Context, userID, portfolioID string) (*models.PortfolioSummary, error) {
	portfolio, err := s.resolve(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.store.ListHoldings(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	var quotes map[string]*models.Quote
	if len(holdings) > 0 {
		symbols := make([]string, len(holdings))
		for i, h := range holdings {
			symbols[i] = h.Symbol
		}
		quotes, err = s.quotes.GetQuotes(ctx, symbols)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("portfolio", portfolio.ID).
				Msg("Quotes unavailable, valuing holdings at cost")
			quotes = nil
		}
	}

	values := make([]models.HoldingValue, 0, len(holdings))
	holdingsValue := decimal.Zero
	for _, h := range holdings {
		price := h.AverageCost
		if q, ok := quotes[h.Symbol]; ok {
			price = q.Price
		}
		mv := h.MarketValue(price)
		values = append(values, models.HoldingValue{
			Holding:            *h,
			CurrentPrice:       price,
			MarketValue:        mv,
			UnrealizedGainLoss: models.RoundMoney(mv.Sub(h.CostBasis())),
		})
		holdingsValue = holdingsValue.Add(mv)
	}

	netWorth := models.RoundMoney(portfolio.CashBalance.Add(holdingsValue))
	return &models.PortfolioSummary{
		Portfolio:     *portfolio,
		Holdings:      values,
		HoldingsValue: models.RoundMoney(holdingsValue),
		NetWorth:      netWorth,
		DisplayWorth:  models.FormatUSD(netWorth),
	}, nil
}

// ListTransactions returns the portfolio's trade journal, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID, portfolioID string, limit int) ([]*models.Transaction, error) {
	portfolio, err := s.resolve(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, portfolio.ID, limit)
}

// resolve loads a portfolio and checks it belongs to the caller. An empty
// portfolioID targets the user's simulation portfolio.
func (s *Service) resolve(ctx context.Context, userID, portfolioID string) (*models.Portfolio, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}
	if portfolioID == "" {
		portfolioID = models.SimulationPortfolioID(userID)
	}
	p, err := s.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: portfolio %s belongs to another user", models.ErrForbidden, p.ID)
	}
	return p, nil
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
