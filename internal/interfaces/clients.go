// Package interfaces defines service contracts for InvestX
package interfaces

import (
	"context"

	"github.com/rtirumala2025/investx/internal/models"
)

// MarketDataClient provides access to the upstream price provider
type MarketDataClient interface {
	// GetLivePrice retrieves the current quote for a symbol
	GetLivePrice(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error)
}

// GamifyClient delivers achievement and leaderboard updates to the
// gamification service. All calls are fire-and-forget from the trade
// pipeline's point of view: failures are logged and reported as warnings,
// never allowed to fail a committed trade.
type GamifyClient interface {
	// Award grants an achievement to a user. Awards are idempotent per
	// (user, key) unless opts.AllowDuplicates is set; re-awarding a held
	// achievement returns Awarded=false with no error.
	Award(ctx context.Context, userID, key string, event map[string]any, opts models.AwardOptions) (*models.AwardResult, error)

	// ApplyDelta pushes an incremental XP and net-worth update
	ApplyDelta(ctx context.Context, delta *models.LeaderboardDelta) error

	// GetUserRank returns the user's current standing, or ErrNotFound for
	// users not yet on the board.
	GetUserRank(ctx context.Context, userID string) (*models.RankInfo, error)
}
