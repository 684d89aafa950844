package surrealdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtirumala2025/investx/internal/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(d(want)), "got %s, want %s", got, want)
}

func provision(t *testing.T, s *Store, userID string) *models.Portfolio {
	t.Helper()
	p, err := s.ProvisionPortfolio(context.Background(), userID, d("10000.00"))
	require.NoError(t, err)
	return p
}

func TestProvisionPortfolio(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	p, err := s.ProvisionPortfolio(ctx, "user1", d("10000.00"))
	require.NoError(t, err)
	assert.Equal(t, "user1_sim", p.ID)
	assert.Equal(t, "user1", p.UserID)
	assert.Equal(t, models.ModeSimulation, p.Mode)
	assertDecimal(t, "10000.00", p.CashBalance)
	assertDecimal(t, "10000.00", p.StartingBalance)
	assert.Equal(t, int64(1), p.Version)

	// Provisioning again returns the existing portfolio untouched, even
	// with a different starting balance.
	again, err := s.ProvisionPortfolio(ctx, "user1", d("500.00"))
	require.NoError(t, err)
	assertDecimal(t, "10000.00", again.StartingBalance)
	assert.Equal(t, int64(1), again.Version)
}

func TestGetPortfolioNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetPortfolio(context.Background(), "nobody_sim")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestDebitAndCreditCash(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "cashuser")

	debited, err := s.DebitCash(ctx, p.ID, d("1501.50"), "op-debit-1")
	require.NoError(t, err)
	assertDecimal(t, "8498.50", debited.CashBalance)
	assert.Equal(t, int64(2), debited.Version)
	assert.Equal(t, "op-debit-1", debited.LastOp)

	credited, err := s.CreditCash(ctx, p.ID, d("2547.45"), "op-credit-1")
	require.NoError(t, err)
	assertDecimal(t, "11045.95", credited.CashBalance)
	assert.Equal(t, int64(3), credited.Version)
}

func TestDebitCashInsufficientFunds(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "pooruser")

	// One cent over the balance is rejected with nothing applied.
	_, err := s.DebitCash(ctx, p.ID, d("10000.01"), "op-over")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	var ife *models.InsufficientFundsError
	require.True(t, errors.As(err, &ife))
	assertDecimal(t, "0.01", ife.Shortfall())

	got, err := s.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assertDecimal(t, "10000.00", got.CashBalance)
	assert.Equal(t, int64(1), got.Version)

	// Draining to exactly zero is allowed.
	drained, err := s.DebitCash(ctx, p.ID, d("10000.00"), "op-drain")
	require.NoError(t, err)
	assertDecimal(t, "0", drained.CashBalance)
}

func TestCashOpIdempotency(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "retryuser")

	first, err := s.DebitCash(ctx, p.ID, d("100.00"), "op-same")
	require.NoError(t, err)
	assertDecimal(t, "9900.00", first.CashBalance)

	// Replaying the same op after a lost ack must not debit twice.
	second, err := s.DebitCash(ctx, p.ID, d("100.00"), "op-same")
	require.NoError(t, err)
	assertDecimal(t, "9900.00", second.CashBalance)
	assert.Equal(t, first.Version, second.Version)
}

func TestConcurrentDebits(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "raceuser")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, op := range []string{"op-race-a", "op-race-b"} {
		wg.Add(1)
		go func(i int, op string) {
			defer wg.Done()
			_, errs[i] = s.DebitCash(ctx, p.ID, d("100.00"), op)
		}(i, op)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := s.GetPortfolio(ctx, p.ID)
	require.NoError(t, err)
	assertDecimal(t, "9800.00", got.CashBalance)
	assert.Equal(t, int64(3), got.Version)
}

func TestResetCash(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "resetuser")

	_, err := s.DebitCash(ctx, p.ID, d("4321.99"), "op-spend")
	require.NoError(t, err)

	reset, err := s.ResetCash(ctx, p.ID, "op-reset")
	require.NoError(t, err)
	assertDecimal(t, "10000.00", reset.CashBalance)

	// Replay is a no-op.
	again, err := s.ResetCash(ctx, p.ID, "op-reset")
	require.NoError(t, err)
	assert.Equal(t, reset.Version, again.Version)
}

func TestUpsertHoldingCreateAndMerge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "holduser")

	h, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("10"), d("150.00"), "op-buy-1")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, models.AssetStock, h.AssetType)
	assertDecimal(t, "10", h.Shares)
	assertDecimal(t, "150.00", h.AverageCost)
	assert.Equal(t, int64(1), h.Version)

	merged, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("5"), d("160.00"), "op-buy-2")
	require.NoError(t, err)
	assertDecimal(t, "15", merged.Shares)
	assertDecimal(t, "153.3333", merged.AverageCost)
	assert.Equal(t, int64(2), merged.Version)

	// Lowercase lookups resolve to the same row.
	got, err := s.GetHolding(ctx, p.ID, "aapl")
	require.NoError(t, err)
	assertDecimal(t, "15", got.Shares)
}

func TestUpsertHoldingIdempotency(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "holdretry")

	first, err := s.UpsertHolding(ctx, p.ID, "MSFT", models.AssetStock, d("3"), d("100.00"), "op-once")
	require.NoError(t, err)

	second, err := s.UpsertHolding(ctx, p.ID, "MSFT", models.AssetStock, d("3"), d("100.00"), "op-once")
	require.NoError(t, err)
	assertDecimal(t, "3", second.Shares)
	assert.Equal(t, first.Version, second.Version)
}

func TestConcurrentBuysBothMerge(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "mergerace")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, op := range []string{"op-m-a", "op-m-b"} {
		wg.Add(1)
		go func(i int, op string) {
			defer wg.Done()
			_, errs[i] = s.UpsertHolding(ctx, p.ID, "NVDA", models.AssetStock, d("2"), d("500.00"), op)
		}(i, op)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := s.GetHolding(ctx, p.ID, "NVDA")
	require.NoError(t, err)
	assertDecimal(t, "4", got.Shares)
	assertDecimal(t, "500.00", got.AverageCost)
}

func TestReduceHolding(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "selluser")

	_, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("15"), d("153.3333"), "op-seed")
	require.NoError(t, err)

	remaining, err := s.ReduceHolding(ctx, p.ID, "AAPL", d("5"), "op-sell-1")
	require.NoError(t, err)
	require.NotNil(t, remaining)
	assertDecimal(t, "10", remaining.Shares)
	// Selling never changes the average cost.
	assertDecimal(t, "153.3333", remaining.AverageCost)

	gone, err := s.ReduceHolding(ctx, p.ID, "AAPL", d("10"), "op-sell-2")
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = s.GetHolding(ctx, p.ID, "AAPL")
	assert.ErrorIs(t, err, models.ErrNotFound)

	holdings, err := s.ListHoldings(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestReduceHoldingDustRemoved(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "dustuser")

	_, err := s.UpsertHolding(ctx, p.ID, "BTC", models.AssetCrypto, d("1.005"), d("60000.00"), "op-seed")
	require.NoError(t, err)

	// Leaves 0.005 shares, under the removal threshold.
	gone, err := s.ReduceHolding(ctx, p.ID, "BTC", d("1"), "op-sell")
	require.NoError(t, err)
	assert.Nil(t, gone)

	_, err = s.GetHolding(ctx, p.ID, "BTC")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReduceHoldingInsufficientShares(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "oversell")

	_, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("15"), d("153.3333"), "op-seed")
	require.NoError(t, err)

	_, err = s.ReduceHolding(ctx, p.ID, "AAPL", d("20"), "op-oversell")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientShares)

	var ise *models.InsufficientSharesError
	require.True(t, errors.As(err, &ise))
	assertDecimal(t, "15", ise.Owned)
	assertDecimal(t, "20", ise.Requested)

	// Nothing was mutated.
	got, err := s.GetHolding(ctx, p.ID, "AAPL")
	require.NoError(t, err)
	assertDecimal(t, "15", got.Shares)
	assert.Equal(t, int64(1), got.Version)

	// Selling a symbol never held reports zero owned.
	_, err = s.ReduceHolding(ctx, p.ID, "TSLA", d("1"), "op-phantom")
	require.Error(t, err)
	require.True(t, errors.As(err, &ise))
	assertDecimal(t, "0", ise.Owned)
}

func TestReduceHoldingRemovalRetry(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "removeretry")

	h, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("10"), d("150.00"), "op-seed")
	require.NoError(t, err)

	// Write the zero-share tombstone directly, as if the removal landed but
	// its ack was lost before the sweep ran.
	swept, err := s.casUpdateHolding(ctx, h.ID, h.Version, decimal.Zero, decimal.Zero, "op-remove")
	require.NoError(t, err)
	require.NotNil(t, swept)

	// Tombstones are invisible to readers.
	_, err = s.GetHolding(ctx, p.ID, "AAPL")
	assert.ErrorIs(t, err, models.ErrNotFound)
	holdings, err := s.ListHoldings(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	// The retried reduce resolves to "removed by this op", not an error.
	gone, err := s.ReduceHolding(ctx, p.ID, "AAPL", d("10"), "op-remove")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// A different op selling the same symbol reports zero shares owned.
	_, err = s.ReduceHolding(ctx, p.ID, "AAPL", d("10"), "op-other")
	assert.ErrorIs(t, err, models.ErrInsufficientShares)
}

func TestRebuyAfterRemoval(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "rebuyer")

	_, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("10"), d("150.00"), "op-b1")
	require.NoError(t, err)
	_, err = s.ReduceHolding(ctx, p.ID, "AAPL", d("10"), "op-s1")
	require.NoError(t, err)

	// A fresh position starts at the new price, not the old average.
	h, err := s.UpsertHolding(ctx, p.ID, "AAPL", models.AssetStock, d("4"), d("200.00"), "op-b2")
	require.NoError(t, err)
	assertDecimal(t, "4", h.Shares)
	assertDecimal(t, "200.00", h.AverageCost)
}

func TestListHoldings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "lister")

	for i, sym := range []string{"MSFT", "AAPL", "NVDA"} {
		op := "op-seed-" + sym
		_, err := s.UpsertHolding(ctx, p.ID, sym, models.AssetStock, d("1"), d("100.00").Add(decimal.NewFromInt(int64(i))), op)
		require.NoError(t, err)
	}

	holdings, err := s.ListHoldings(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, holdings, 3)
	assert.Equal(t, "AAPL", holdings[0].Symbol)
	assert.Equal(t, "MSFT", holdings[1].Symbol)
	assert.Equal(t, "NVDA", holdings[2].Symbol)

	// Other portfolios are not visible.
	other := provision(t, s, "otherlister")
	empty, err := s.ListHoldings(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDeleteHoldings(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "wiper")

	for _, sym := range []string{"AAPL", "MSFT"} {
		_, err := s.UpsertHolding(ctx, p.ID, sym, models.AssetStock, d("1"), d("100.00"), "op-seed-"+sym)
		require.NoError(t, err)
	}

	count, err := s.DeleteHoldings(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	holdings, err := s.ListHoldings(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, holdings)

	// Deleting again removes nothing.
	count, err = s.DeleteHoldings(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestAppendAndListTransactions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "journal")

	gain := d("247.45")
	base := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	txs := []*models.Transaction{
		{
			ID: "01AAAAAAAAAAAAAAAAAAAAAAAA", PortfolioID: p.ID, UserID: "journal",
			Type: models.TransactionBuy, Symbol: "AAPL", AssetType: models.AssetStock,
			Shares: d("10"), PricePerShare: d("150.00"), TotalAmount: d("-1501.50"),
			Fees: d("1.50"), Timestamp: base,
		},
		{
			ID: "01BBBBBBBBBBBBBBBBBBBBBBBB", PortfolioID: p.ID, UserID: "journal",
			Type: models.TransactionBuy, Symbol: "AAPL", AssetType: models.AssetStock,
			Shares: d("5"), PricePerShare: d("160.00"), TotalAmount: d("-800.80"),
			Fees: d("0.80"), Timestamp: base.Add(time.Minute),
		},
		{
			ID: "01CCCCCCCCCCCCCCCCCCCCCCCC", PortfolioID: p.ID, UserID: "journal",
			Type: models.TransactionSell, Symbol: "AAPL", AssetType: models.AssetStock,
			Shares: d("15"), PricePerShare: d("170.00"), TotalAmount: d("2547.45"),
			Fees: d("2.55"), RealizedGainLoss: &gain, Timestamp: base.Add(2 * time.Minute),
		},
	}
	for _, tx := range txs {
		require.NoError(t, s.AppendTransaction(ctx, tx))
	}

	// Re-appending the same transaction lands on the same row.
	require.NoError(t, s.AppendTransaction(ctx, txs[0]))

	list, err := s.ListTransactions(ctx, p.ID, 50)
	require.NoError(t, err)
	require.Len(t, list, 3)

	// Newest first.
	assert.Equal(t, "01CCCCCCCCCCCCCCCCCCCCCCCC", list[0].ID)
	assert.Equal(t, models.TransactionSell, list[0].Type)
	require.NotNil(t, list[0].RealizedGainLoss)
	assertDecimal(t, "247.45", *list[0].RealizedGainLoss)
	assertDecimal(t, "2547.45", list[0].TotalAmount)

	assert.Equal(t, "01AAAAAAAAAAAAAAAAAAAAAAAA", list[2].ID)
	assert.Nil(t, list[2].RealizedGainLoss)
	assertDecimal(t, "-1501.50", list[2].TotalAmount)

	limited, err := s.ListTransactions(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "01CCCCCCCCCCCCCCCCCCCCCCCC", limited[0].ID)
}

func TestPurgeTransactions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	p := provision(t, s, "purger")
	other := provision(t, s, "bystander")

	for i, id := range []string{"01PAAAAAAAAAAAAAAAAAAAAAAA", "01PBBBBBBBBBBBBBBBBBBBBBBB"} {
		require.NoError(t, s.AppendTransaction(ctx, &models.Transaction{
			ID: id, PortfolioID: p.ID, UserID: "purger",
			Type: models.TransactionBuy, Symbol: "AAPL", AssetType: models.AssetStock,
			Shares: d("1"), PricePerShare: d("100.00"), TotalAmount: d("-100.10"),
			Fees: d("0.10"), Timestamp: time.Date(2026, 2, 1, 9, 30+i, 0, 0, time.UTC),
		}))
	}
	require.NoError(t, s.AppendTransaction(ctx, &models.Transaction{
		ID: "01PCCCCCCCCCCCCCCCCCCCCCCC", PortfolioID: other.ID, UserID: "bystander",
		Type: models.TransactionBuy, Symbol: "MSFT", AssetType: models.AssetStock,
		Shares: d("1"), PricePerShare: d("200.00"), TotalAmount: d("-200.20"),
		Fees: d("0.20"), Timestamp: time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC),
	}))

	purged, err := s.PurgeTransactions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	list, err := s.ListTransactions(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The other portfolio's journal is untouched.
	kept, err := s.ListTransactions(ctx, other.ID, 10)
	require.NoError(t, err)
	require.Len(t, kept, 1)

	again, err := s.PurgeTransactions(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again)
}
