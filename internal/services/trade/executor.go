// Package trade executes buy and sell orders against the virtual ledger.
//
// Each order moves through Validating, Computing, Mutating, SideEffects and
// finally Done; a failure in any stage stops the pipeline there. The
// Mutating stage is a sequence of individually durable ledger writes with no
// wrapping transaction, so a failure mid-sequence is surfaced as
// PartialCommitError naming the steps that landed rather than pretending
// the trade never happened.
package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

// Mutation step names recorded in PartialCommitError.Applied. They tell a
// reconciler which ledger writes landed before the failure.
const (
	stepUpsertHolding = "upsert_holding"
	stepReduceHolding = "reduce_holding"
	stepDebitCash     = "debit_cash"
	stepCreditCash    = "credit_cash"
	stepAppendJournal = "append_transaction"
)

// Service implements TradeService.
type Service struct {
	store           interfaces.LedgerStore
	quotes          interfaces.QuoteService
	gamify          interfaces.GamifyClient
	startingBalance decimal.Decimal
	logger          *common.Logger
	now             func() time.Time // injectable clock for testing
	newID           func() string    // injectable transaction id source
}

// NewService creates the order executor. startingBalance seeds portfolios
// provisioned on a user's first trade.
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
		now:             time.Now,
		newID:           models.NewTransactionID,
	}
}

// Execute runs a buy or sell through the full pipeline. Business rejections
// (invalid input, insufficient funds or shares) happen before any ledger
// write; side-effect failures after the ledger writes surface as warnings on
// the result, never as errors.
func (s *Service) Execute(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
	// Validating
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	portfolio, err := s.resolvePortfolio(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.fillPrice(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("side", string(req.Side)).
		Str("symbol", req.Symbol).
		Str("shares", req.Shares.String()).
		Str("price", req.Price.String()).
		Str("portfolio", portfolio.ID).
		Msg("Executing trade")

	var result *models.TradeResult
	switch req.Side {
	case models.TransactionBuy:
		result, err = s.executeBuy(ctx, req, portfolio)
	default:
		result, err = s.executeSell(ctx, req, portfolio)
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("symbol", req.Symbol).
			Str("kind", models.ErrorKind(err)).
			Msg("Trade failed")
		return nil, err
	}

	// SideEffects: the ledger writes are durable from here on, so anything
	// that goes wrong below is a warning, not a failure.
	result.State = models.TradeStateSideEffects
	result.Warnings = s.runSideEffects(ctx, req, result)
	result.State = models.TradeStateDone

	s.logger.Info().
		Str("transaction", result.TransactionID).
		Str("symbol", result.Symbol).
		Str("cash_balance", result.CashBalance.String()).
		Msg("Trade complete")
	return result, nil
}

// resolvePortfolio loads the target portfolio, provisioning the user's
// simulation portfolio on first use when the request does not name one.
// A named portfolio must belong to the requesting user.
func (s *Service) resolvePortfolio(ctx context.Context, req *models.TradeRequest) (*models.Portfolio, error) {
	if req.PortfolioID == "" {
		p, err := s.store.ProvisionPortfolio(ctx, req.UserID, s.startingBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to provision portfolio: %w", err)
		}
		req.PortfolioID = p.ID
		return p, nil
	}

	p, err := s.store.GetPortfolio(ctx, req.PortfolioID)
	if err != nil {
		return nil, err
	}
	if p.UserID != req.UserID {
		return nil, fmt.Errorf("%w: portfolio %s belongs to another user", models.ErrForbidden, p.ID)
	}
	return p, nil
}

// fillPrice resolves a zero request price from the quote service. Explicit
// prices are rounded to cents before any computation uses them.
func (s *Service) fillPrice(ctx context.Context, req *models.TradeRequest) error {
	if req.Price.IsZero() {
		quote, err := s.quotes.GetQuote(ctx, req.Symbol, req.AssetType)
		if err != nil {
			return fmt.Errorf("no price available for %s: %w", req.Symbol, err)
		}
		req.Price = quote.Price
	}
	req.Price = models.RoundMoney(req.Price)
	if !req.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", models.ErrInvalidInput)
	}
	return nil
}

// executeBuy applies a purchase: position upsert, cash debit, journal append.
func (s *Service) executeBuy(ctx context.Context, req *models.TradeRequest, portfolio *models.Portfolio) (*models.TradeResult, error) {
	// Computing
	notional := models.RoundMoney(req.Shares.Mul(req.Price))
	fee := Fee(notional)
	totalCost := notional.Add(fee)
	txID := s.newID()

	for attempt := 0; ; attempt++ {
		// Affordability is checked before any write. The debit below
		// enforces it again authoritatively, since another writer can spend
		// the balance between this check and the debit landing.
		if totalCost.GreaterThan(portfolio.CashBalance) {
			return nil, &models.InsufficientFundsError{Required: totalCost, Available: portfolio.CashBalance}
		}

		holding, after, applied, err := s.applyBuy(ctx, req, portfolio.ID, txID, totalCost, fee)
		if err == nil {
			return &models.TradeResult{
				TransactionID: txID,
				PortfolioID:   portfolio.ID,
				State:         models.TradeStateMutating,
				Side:          models.TransactionBuy,
				Symbol:        req.Symbol,
				Shares:        req.Shares,
				Price:         req.Price,
				Notional:      notional,
				Fee:           fee,
				TotalCost:     totalCost,
				CashBalance:   after.CashBalance,
				Holding:       holding,
			}, nil
		}

		if len(applied) > 0 {
			return nil, &models.PartialCommitError{TransactionID: txID, Applied: applied, Cause: err}
		}
		if errors.Is(err, models.ErrConcurrentModification) && attempt == 0 {
			// Nothing landed; another writer won the race. Re-read and
			// replay the computation once against fresh state.
			fresh, readErr := s.store.GetPortfolio(ctx, portfolio.ID)
			if readErr != nil {
				return nil, err
			}
			portfolio = fresh
			s.logger.Debug().
				Str("portfolio", portfolio.ID).
				Str("symbol", req.Symbol).
				Msg("Replaying buy after concurrent modification")
			continue
		}
		return nil, err
	}
}

// applyBuy runs the buy's mutation sequence and reports which steps durably
// applied alongside any error. Step op ids derive from the transaction id,
// so a replay of the sequence hits the same idempotency keys.
func (s *Service) applyBuy(
	ctx context.Context,
	req *models.TradeRequest,
	portfolioID, txID string,
	totalCost, fee decimal.Decimal,
) (*models.Holding, *models.Portfolio, []string, error) {
	var applied []string

	holding, err := s.store.UpsertHolding(ctx, portfolioID, req.Symbol, req.AssetType, req.Shares, req.Price, stepOp(txID, stepUpsertHolding))
	if err != nil {
		return nil, nil, applied, err
	}
	applied = append(applied, stepUpsertHolding)

	after, err := s.store.DebitCash(ctx, portfolioID, totalCost, stepOp(txID, stepDebitCash))
	if err != nil {
		return holding, nil, applied, err
	}
	applied = append(applied, stepDebitCash)

	txn := &models.Transaction{
		ID:            txID,
		PortfolioID:   portfolioID,
		UserID:        req.UserID,
		Type:          models.TransactionBuy,
		Symbol:        req.Symbol,
		AssetType:     holding.AssetType,
		Shares:        req.Shares,
		PricePerShare: req.Price,
		TotalAmount:   totalCost.Neg(),
		Fees:          fee,
		Timestamp:     s.now().UTC(),
	}
	if err := s.store.AppendTransaction(ctx, txn); err != nil {
		return holding, after, applied, err
	}
	applied = append(applied, stepAppendJournal)
	return holding, after, applied, nil
}

// executeSell applies a sale: position reduction, cash credit, journal
// append. The realized gain uses the average cost read before the trade;
// sells never move the average.
func (s *Service) executeSell(ctx context.Context, req *models.TradeRequest, portfolio *models.Portfolio) (*models.TradeResult, error) {
	txID := s.newID()

	for attempt := 0; ; attempt++ {
		// Validating: the position must cover the sale.
		holding, err := s.store.GetHolding(ctx, portfolio.ID, req.Symbol)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, &models.InsufficientSharesError{Symbol: req.Symbol, Requested: req.Shares, Owned: decimal.Zero}
			}
			return nil, err
		}
		if req.Shares.GreaterThan(holding.Shares) {
			return nil, &models.InsufficientSharesError{Symbol: req.Symbol, Requested: req.Shares, Owned: holding.Shares}
		}

		// Computing
		notional := models.RoundMoney(req.Shares.Mul(req.Price))
		fee := Fee(notional)
		proceeds := notional.Sub(fee)
		gain := models.RealizedGainLoss(req.Price, holding.AverageCost, req.Shares, fee)

		remaining, after, applied, err := s.applySell(ctx, req, holding, txID, proceeds, fee, gain)
		if err == nil {
			return &models.TradeResult{
				TransactionID:    txID,
				PortfolioID:      portfolio.ID,
				State:            models.TradeStateMutating,
				Side:             models.TransactionSell,
				Symbol:           req.Symbol,
				Shares:           req.Shares,
				Price:            req.Price,
				Notional:         notional,
				Fee:              fee,
				Proceeds:         proceeds,
				RealizedGainLoss: &gain,
				CashBalance:      after.CashBalance,
				Holding:          remaining,
			}, nil
		}

		if len(applied) > 0 {
			return nil, &models.PartialCommitError{TransactionID: txID, Applied: applied, Cause: err}
		}
		if errors.Is(err, models.ErrConcurrentModification) && attempt == 0 {
			// Nothing landed. A concurrent buy may have moved the average
			// cost, so loop back to re-read and recompute the gain before
			// the single replay.
			s.logger.Debug().
				Str("portfolio", portfolio.ID).
				Str("symbol", req.Symbol).
				Msg("Replaying sell after concurrent modification")
			continue
		}
		return nil, err
	}
}

// applySell runs the sell's mutation sequence, reporting applied steps the
// same way applyBuy does. remaining is nil when the position was fully sold.
func (s *Service) applySell(
	ctx context.Context,
	req *models.TradeRequest,
	holding *models.Holding,
	txID string,
	proceeds, fee, gain decimal.Decimal,
) (*models.Holding, *models.Portfolio, []string, error) {
	var applied []string

	remaining, err := s.store.ReduceHolding(ctx, holding.PortfolioID, req.Symbol, req.Shares, stepOp(txID, stepReduceHolding))
	if err != nil {
		return nil, nil, applied, err
	}
	applied = append(applied, stepReduceHolding)

	after, err := s.store.CreditCash(ctx, holding.PortfolioID, proceeds, stepOp(txID, stepCreditCash))
	if err != nil {
		return remaining, nil, applied, err
	}
	applied = append(applied, stepCreditCash)

	txn := &models.Transaction{
		ID:               txID,
		PortfolioID:      holding.PortfolioID,
		UserID:           req.UserID,
		Type:             models.TransactionSell,
		Symbol:           req.Symbol,
		AssetType:        holding.AssetType,
		Shares:           req.Shares,
		PricePerShare:    req.Price,
		TotalAmount:      proceeds,
		Fees:             fee,
		RealizedGainLoss: &gain,
		Timestamp:        s.now().UTC(),
	}
	if err := s.store.AppendTransaction(ctx, txn); err != nil {
		return remaining, after, applied, err
	}
	applied = append(applied, stepAppendJournal)
	return remaining, after, applied, nil
}

// stepOp derives a step-scoped idempotency key from the transaction id.
func stepOp(txID, step string) string {
	return txID + ":" + step
}

// Ensure Service implements TradeService
var _ interfaces.TradeService = (*Service)(nil)
