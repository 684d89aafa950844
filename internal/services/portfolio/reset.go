package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rtirumala2025/investx/internal/models"
)

// Reset wipes the portfolio back to its starting state: every holding is
// removed and the cash balance returns to the starting balance. The trade
// journal is retained for audit.
//
// The two writes are separate durable steps. If the balance restore fails
// after holdings were already deleted, Reset returns PartialCommitError so
// the caller sees a holding-free portfolio with the old balance instead of
// being told the reset either succeeded or never happened.
func (s *Service) Reset(ctx context.Context, userID, portfolioID string) (*models.ResetResult, error) {
	portfolio, err := s.resolve(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("portfolio", portfolio.ID).
		Str("user", userID).
		Msg("Resetting portfolio")

	removed, err := s.store.DeleteHoldings(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear holdings: %w", err)
	}

	op := "reset:" + models.NewTransactionID()
	after, err := s.store.ResetCash(ctx, portfolio.ID, op)
	if err != nil {
		return nil, &models.PartialCommitError{Applied: []string{"delete_holdings"}, Cause: err}
	}

	result := &models.ResetResult{
		PortfolioID:     after.ID,
		CashBalance:     after.CashBalance,
		HoldingsRemoved: removed,
	}
	result.Warnings = s.syncLeaderboardAfterReset(ctx, userID, after)

	s.logger.Info().
		Str("portfolio", after.ID).
		Int("holdings_removed", removed).
		Str("cash_balance", after.CashBalance.String()).
		Msg("Portfolio reset")
	return result, nil
}

// syncLeaderboardAfterReset converges the user's leaderboard net worth on
// the post-reset balance. Failures are warnings; the reset itself stands.
func (s *Service) syncLeaderboardAfterReset(ctx context.Context, userID string, after *models.Portfolio) []string {
	rank, err := s.gamify.GetUserRank(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		// Never on the board, nothing to converge.
		return nil
	case err != nil:
		s.logger.Warn().
			Err(err).
			Str("user", userID).
			Msg("Leaderboard sync skipped after reset")
		return []string{"leaderboard was not updated"}
	}

	delta := &models.LeaderboardDelta{
		UserID:        userID,
		NetWorthDelta: models.RoundMoney(after.CashBalance.Sub(rank.NetWorth)),
	}
	if err := s.gamify.ApplyDelta(ctx, delta); err != nil {
		s.logger.Warn().
			Err(err).
			Str("user", userID).
			Msg("Leaderboard delta failed after reset")
		return []string{"leaderboard was not updated"}
	}
	return nil
}
