package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Achievement keys awarded by the trade executor. Keys are stable
// identifiers; the gamify service owns display names and artwork.
const (
	AchievementFirstTrade      = "first_trade"
	AchievementFirstSale       = "first_sale"
	AchievementProfitableTrade = "profitable_trade"
)

// AwardOptions configures a single achievement award. XPReward of zero
// means the achievement's default XP applies.
type AwardOptions struct {
	XPReward        int  `json:"xp_reward,omitempty"`
	AllowDuplicates bool `json:"allow_duplicates,omitempty"`
}

// AwardResult reports whether the award was newly granted. Awarded is false
// when the user already held a non-duplicable achievement.
type AwardResult struct {
	Key       string    `json:"key"`
	Awarded   bool      `json:"awarded"`
	XPGranted int       `json:"xp_granted"`
	AwardedAt time.Time `json:"awarded_at,omitempty"`
}

// LeaderboardDelta is an incremental XP and net-worth update pushed after a
// trade or reset commits.
type LeaderboardDelta struct {
	UserID        string          `json:"user_id"`
	XPDelta       int             `json:"xp_delta"`
	NetWorthDelta decimal.Decimal `json:"net_worth_delta"`
}

// RankInfo is a user's current leaderboard standing.
type RankInfo struct {
	UserID   string          `json:"user_id"`
	XP       int             `json:"xp"`
	NetWorth decimal.Decimal `json:"net_worth"`
	Rank     int             `json:"rank"`
}
