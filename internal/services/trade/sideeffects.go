package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

// XP granted with first-time achievements. Profit XP on winning sells is
// computed from the realized gain instead; see profitXP.
const (
	xpFirstTrade = 50
	xpFirstSale  = 25
)

// runSideEffects fires achievement and leaderboard updates after the ledger
// writes are durable. Failures here never fail the trade: they are logged
// and returned as user-visible warnings. A canceled request context stops
// remaining side effects without touching the committed trade.
func (s *Service) runSideEffects(ctx context.Context, req *models.TradeRequest, result *models.TradeResult) []string {
	var warnings []string

	event := map[string]any{
		"action": string(result.Side),
		"symbol": result.Symbol,
		"shares": result.Shares.String(),
		"price":  result.Price.String(),
	}
	if result.RealizedGainLoss != nil {
		event["realized_gain_loss"] = result.RealizedGainLoss.String()
	}

	warnings = append(warnings, s.award(ctx, req.UserID, models.AchievementFirstTrade, event, models.AwardOptions{XPReward: xpFirstTrade})...)

	xpDelta := 0
	if result.Side == models.TransactionSell {
		warnings = append(warnings, s.award(ctx, req.UserID, models.AchievementFirstSale, event, models.AwardOptions{XPReward: xpFirstSale})...)

		if result.RealizedGainLoss != nil && result.RealizedGainLoss.IsPositive() {
			warnings = append(warnings, s.award(ctx, req.UserID, models.AchievementProfitableTrade, event, models.AwardOptions{AllowDuplicates: true})...)
			xpDelta = profitXP(*result.RealizedGainLoss)
		}
	}

	warnings = append(warnings, s.syncLeaderboard(ctx, req.UserID, result.PortfolioID, result.CashBalance, xpDelta)...)
	return warnings
}

// award grants one achievement, converting any failure into a warning.
func (s *Service) award(ctx context.Context, userID, key string, event map[string]any, opts models.AwardOptions) []string {
	res, err := s.gamify.Award(ctx, userID, key, event, opts)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("achievement", key).
			Str("user", userID).
			Msg("Achievement award failed")
		return []string{fmt.Sprintf("achievement %s was not recorded", key)}
	}
	if res != nil && res.Awarded {
		s.logger.Info().
			Str("achievement", key).
			Str("user", userID).
			Int("xp", res.XPGranted).
			Msg("Achievement awarded")
	}
	return nil
}

// profitXP converts a realized gain into leaderboard XP: one point per ten
// dollars of profit, floored at ten points.
func profitXP(gain decimal.Decimal) int {
	xp := gain.DivRound(decimal.NewFromInt(10), 0).IntPart()
	if xp < 10 {
		return 10
	}
	return int(xp)
}

// syncLeaderboard pushes the XP and net-worth movement from this trade. The
// previous net worth comes from the leaderboard itself, so repeated syncs
// converge on the true value instead of accumulating drift.
func (s *Service) syncLeaderboard(ctx context.Context, userID, portfolioID string, cash decimal.Decimal, xpDelta int) []string {
	worth, err := s.currentNetWorth(ctx, portfolioID, cash)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("portfolio", portfolioID).
			Msg("Leaderboard sync skipped: net worth unavailable")
		return []string{"leaderboard was not updated"}
	}

	previous := decimal.Zero
	rank, err := s.gamify.GetUserRank(ctx, userID)
	switch {
	case err == nil:
		previous = rank.NetWorth
	case errors.Is(err, models.ErrNotFound):
		// First appearance on the board; the full net worth is the delta.
	default:
		s.logger.Warn().
			Err(err).
			Str("user", userID).
			Msg("Leaderboard sync skipped: current standing unavailable")
		return []string{"leaderboard was not updated"}
	}

	delta := &models.LeaderboardDelta{
		UserID:        userID,
		XPDelta:       xpDelta,
		NetWorthDelta: models.RoundMoney(worth.Sub(previous)),
	}
	if err := s.gamify.ApplyDelta(ctx, delta); err != nil {
		s.logger.Warn().
			Err(err).
			Str("user", userID).
			Msg("Leaderboard delta failed")
		return []string{"leaderboard was not updated"}
	}
	return nil
}

// currentNetWorth values the portfolio at current prices: cash plus each
// position at its quoted price, falling back to cost basis for positions
// the quote service cannot price right now.
func (s *Service) currentNetWorth(ctx context.Context, portfolioID string, cash decimal.Decimal) (decimal.Decimal, error) {
	holdings, err := s.store.ListHoldings(ctx, portfolioID)
	if err != nil {
		return decimal.Zero, err
	}
	worth := cash
	if len(holdings) == 0 {
		return worth, nil
	}

	symbols := make([]string, len(holdings))
	for i, h := range holdings {
		symbols[i] = h.Symbol
	}
	quotes, err := s.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		quotes = nil
	}

	for _, h := range holdings {
		if q, ok := quotes[h.Symbol]; ok {
			worth = worth.Add(h.MarketValue(q.Price))
		} else {
			worth = worth.Add(h.CostBasis())
		}
	}
	return models.RoundMoney(worth), nil
}
