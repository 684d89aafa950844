package gamify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

func TestAward_SendsPayload(t *testing.T) {
	var capturedMethod, capturedPath string
	var capturedBody awardRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedMethod = r.Method
		capturedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&capturedBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.AwardResult{Key: "first_trade", Awarded: true, XPGranted: 50})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	result, err := client.Award(context.Background(), "user1", "first_trade",
		map[string]any{"action": "buy", "symbol": "AAPL"},
		models.AwardOptions{XPReward: 50})
	if err != nil {
		t.Fatalf("Award failed: %v", err)
	}

	if capturedMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", capturedMethod)
	}
	if capturedPath != "/v1/users/user1/achievements" {
		t.Errorf("expected path /v1/users/user1/achievements, got %s", capturedPath)
	}
	if capturedBody.Key != "first_trade" {
		t.Errorf("expected key first_trade, got %s", capturedBody.Key)
	}
	if capturedBody.XPReward != 50 {
		t.Errorf("expected xp_reward 50, got %d", capturedBody.XPReward)
	}
	if capturedBody.Event["symbol"] != "AAPL" {
		t.Errorf("expected event symbol AAPL, got %v", capturedBody.Event["symbol"])
	}
	if !result.Awarded {
		t.Error("expected award to be granted")
	}
	if result.XPGranted != 50 {
		t.Errorf("expected 50 XP granted, got %d", result.XPGranted)
	}
}

func TestAward_FailureIsSideEffect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.Award(context.Background(), "user1", "first_trade", nil, models.AwardOptions{})
	if !errors.Is(err, models.ErrSideEffect) {
		t.Errorf("expected ErrSideEffect, got %v", err)
	}
}

func TestApplyDelta_SendsPayload(t *testing.T) {
	var capturedPath string
	var capturedBody models.LeaderboardDelta

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&capturedBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	err := client.ApplyDelta(context.Background(), &models.LeaderboardDelta{
		UserID:        "user1",
		XPDelta:       25,
		NetWorthDelta: decimal.RequireFromString("245.15"),
	})
	if err != nil {
		t.Fatalf("ApplyDelta failed: %v", err)
	}

	if capturedPath != "/v1/leaderboard/deltas" {
		t.Errorf("expected path /v1/leaderboard/deltas, got %s", capturedPath)
	}
	if capturedBody.UserID != "user1" {
		t.Errorf("expected user_id user1, got %s", capturedBody.UserID)
	}
	if capturedBody.XPDelta != 25 {
		t.Errorf("expected xp_delta 25, got %d", capturedBody.XPDelta)
	}
	if !capturedBody.NetWorthDelta.Equal(decimal.RequireFromString("245.15")) {
		t.Errorf("expected net_worth_delta 245.15, got %s", capturedBody.NetWorthDelta)
	}
}

func TestGetUserRank_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/leaderboard/users/user1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.RankInfo{
			UserID:   "user1",
			XP:       75,
			NetWorth: decimal.RequireFromString("10245.15"),
			Rank:     3,
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	rank, err := client.GetUserRank(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetUserRank failed: %v", err)
	}

	if rank.XP != 75 {
		t.Errorf("expected 75 XP, got %d", rank.XP)
	}
	if !rank.NetWorth.Equal(decimal.RequireFromString("10245.15")) {
		t.Errorf("expected net worth 10245.15, got %s", rank.NetWorth)
	}
	if rank.Rank != 3 {
		t.Errorf("expected rank 3, got %d", rank.Rank)
	}
}

func TestGetUserRank_UnrankedUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.GetUserRank(context.Background(), "nobody")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, models.ErrSideEffect) {
		t.Error("an unranked user is not a side effect failure")
	}
}

func TestFakeAwardDeduplicates(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	first, err := fake.Award(ctx, "user1", "first_trade", nil, models.AwardOptions{XPReward: 50})
	if err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	if !first.Awarded || first.XPGranted != 50 {
		t.Errorf("expected first award granted with 50 XP, got %+v", first)
	}

	second, err := fake.Award(ctx, "user1", "first_trade", nil, models.AwardOptions{XPReward: 50})
	if err != nil {
		t.Fatalf("Award failed: %v", err)
	}
	if second.Awarded {
		t.Error("expected duplicate award to be suppressed")
	}
	if second.AwardedAt.IsZero() {
		t.Error("expected suppressed award to report the original grant time")
	}

	rank, err := fake.GetUserRank(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserRank failed: %v", err)
	}
	if rank.XP != 50 {
		t.Errorf("expected XP granted once, got %d", rank.XP)
	}
}

func TestFakeAwardAllowsDuplicates(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()
	opts := models.AwardOptions{XPReward: 5, AllowDuplicates: true}

	for i := 0; i < 3; i++ {
		res, err := fake.Award(ctx, "user1", "profitable_trade", nil, opts)
		if err != nil {
			t.Fatalf("Award failed: %v", err)
		}
		if !res.Awarded {
			t.Errorf("expected repeatable award %d to be granted", i)
		}
	}

	rank, err := fake.GetUserRank(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserRank failed: %v", err)
	}
	if rank.XP != 15 {
		t.Errorf("expected 15 XP from three grants, got %d", rank.XP)
	}
}

func TestFakeLeaderboardRanksByNetWorth(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	fake.ApplyDelta(ctx, &models.LeaderboardDelta{UserID: "user1", NetWorthDelta: decimal.RequireFromString("10500.00")})
	fake.ApplyDelta(ctx, &models.LeaderboardDelta{UserID: "user2", NetWorthDelta: decimal.RequireFromString("9800.00")})
	fake.ApplyDelta(ctx, &models.LeaderboardDelta{UserID: "user3", NetWorthDelta: decimal.RequireFromString("11200.00")})

	rank, err := fake.GetUserRank(ctx, "user1")
	if err != nil {
		t.Fatalf("GetUserRank failed: %v", err)
	}
	if rank.Rank != 2 {
		t.Errorf("expected user1 at rank 2, got %d", rank.Rank)
	}
	if !rank.NetWorth.Equal(decimal.RequireFromString("10500.00")) {
		t.Errorf("expected net worth 10500.00, got %s", rank.NetWorth)
	}

	// Deltas accumulate
	fake.ApplyDelta(ctx, &models.LeaderboardDelta{UserID: "user1", XPDelta: 10, NetWorthDelta: decimal.RequireFromString("800.00")})
	rank, _ = fake.GetUserRank(ctx, "user1")
	if rank.Rank != 1 {
		t.Errorf("expected user1 at rank 1 after gain, got %d", rank.Rank)
	}
	if rank.XP != 10 {
		t.Errorf("expected 10 XP, got %d", rank.XP)
	}
}

func TestFakeUnknownUser(t *testing.T) {
	fake := NewFake()
	_, err := fake.GetUserRank(context.Background(), "nobody")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
