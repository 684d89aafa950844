package gamify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

// Fake is a process-local GamifyClient used when no gamify service is
// configured. Awards and leaderboard standings live in memory and reset on
// restart, which is fine for local development and single-node demos.
type Fake struct {
	mu    sync.Mutex
	users map[string]*fakeUser
	now   func() time.Time
}

type fakeUser struct {
	xp        int
	netWorth  decimal.Decimal
	awardedAt map[string]time.Time
}

// NewFake creates an empty in-process gamify backend
func NewFake() *Fake {
	return &Fake{
		users: make(map[string]*fakeUser),
		now:   time.Now,
	}
}

func (f *Fake) user(userID string) *fakeUser {
	u, ok := f.users[userID]
	if !ok {
		u = &fakeUser{awardedAt: make(map[string]time.Time)}
		f.users[userID] = u
	}
	return u
}

// Award grants an achievement, deduplicating per (user, key) unless
// opts.AllowDuplicates is set
func (f *Fake) Award(_ context.Context, userID, key string, _ map[string]any, opts models.AwardOptions) (*models.AwardResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.user(userID)
	if prior, ok := u.awardedAt[key]; ok && !opts.AllowDuplicates {
		return &models.AwardResult{Key: key, Awarded: false, AwardedAt: prior}, nil
	}

	at := f.now().UTC()
	if _, ok := u.awardedAt[key]; !ok {
		u.awardedAt[key] = at
	}
	u.xp += opts.XPReward

	return &models.AwardResult{
		Key:       key,
		Awarded:   true,
		XPGranted: opts.XPReward,
		AwardedAt: at,
	}, nil
}

// ApplyDelta accumulates an XP and net-worth movement for the user
func (f *Fake) ApplyDelta(_ context.Context, delta *models.LeaderboardDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := f.user(delta.UserID)
	u.xp += delta.XPDelta
	u.netWorth = u.netWorth.Add(delta.NetWorthDelta)
	return nil
}

// GetUserRank returns the user's standing, ranked by net worth. ErrNotFound
// means the user has never appeared on the board.
func (f *Fake) GetUserRank(_ context.Context, userID string) (*models.RankInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	u, ok := f.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}

	type standing struct {
		id       string
		xp       int
		netWorth decimal.Decimal
	}
	board := make([]standing, 0, len(f.users))
	for id, user := range f.users {
		board = append(board, standing{id: id, xp: user.xp, netWorth: user.netWorth})
	}
	sort.Slice(board, func(i, j int) bool {
		if !board[i].netWorth.Equal(board[j].netWorth) {
			return board[i].netWorth.GreaterThan(board[j].netWorth)
		}
		if board[i].xp != board[j].xp {
			return board[i].xp > board[j].xp
		}
		return board[i].id < board[j].id
	})

	rank := 0
	for i, entry := range board {
		if entry.id == userID {
			rank = i + 1
			break
		}
	}

	return &models.RankInfo{
		UserID:   userID,
		XP:       u.xp,
		NetWorth: u.netWorth,
		Rank:     rank,
	}, nil
}

// Ensure Fake implements GamifyClient
var _ interfaces.GamifyClient = (*Fake)(nil)
