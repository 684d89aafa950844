package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/rtirumala2025/investx/internal/models"
)

// Ledger primitives. Each mutation follows the same shape: read the row,
// return early if the row's last_op already matches this op (the previous
// attempt landed but the ack was lost), otherwise apply the change and
// write it conditioned on the version that was read. A conditional write
// that matches no row is a CAS miss: another writer advanced the row, so
// re-read and re-apply. Deltas (debit, credit, merge, reduce) stay correct
// under re-application because each pass recomputes from the fresh row.

func (s *Store) ProvisionPortfolio(ctx context.Context, userID string, startingBalance decimal.Decimal) (*models.Portfolio, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", models.ErrInvalidInput)
	}
	if startingBalance.IsNegative() {
		return nil, fmt.Errorf("%w: starting balance cannot be negative", models.ErrInvalidInput)
	}
	id := models.SimulationPortfolioID(userID)

	existing, err := selectRow[portfolioRow](ctx, s, tablePortfolio, id)
	if err != nil {
		return nil, transientErr("provision portfolio", err)
	}
	if existing != nil {
		return existing.toModel()
	}

	now := time.Now().UTC()
	starting := models.RoundMoney(startingBalance).String()
	row := &portfolioRow{
		PortfolioID:     id,
		UserID:          userID,
		Mode:            string(models.ModeSimulation),
		CashBalance:     starting,
		StartingBalance: starting,
		Version:         1,
		LastOp:          "provision",
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	created, err := queryRows[portfolioRow](ctx, s, "CREATE $rid CONTENT $row", map[string]any{
		"rid": surrealmodels.NewRecordID(tablePortfolio, id),
		"row": row,
	})
	if err != nil {
		if isAlreadyExistsError(err) {
			// Lost the provisioning race; the winner's row is authoritative.
			winner, serr := selectRow[portfolioRow](ctx, s, tablePortfolio, id)
			if serr != nil {
				return nil, transientErr("provision portfolio", serr)
			}
			if winner != nil {
				return winner.toModel()
			}
		}
		return nil, transientErr("provision portfolio", err)
	}
	if len(created) == 0 {
		return nil, transientErr("provision portfolio", fmt.Errorf("create returned no rows"))
	}

	s.logger.Info().
		Str("portfolio", id).
		Str("user", userID).
		Str("starting_balance", starting).
		Msg("Simulation portfolio provisioned")
	return created[0].toModel()
}

func (s *Store) GetPortfolio(ctx context.Context, portfolioID string) (*models.Portfolio, error) {
	row, err := selectRow[portfolioRow](ctx, s, tablePortfolio, portfolioID)
	if err != nil {
		return nil, transientErr("get portfolio", err)
	}
	if row == nil {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
	}
	return row.toModel()
}

func (s *Store) DebitCash(ctx context.Context, portfolioID string, amount decimal.Decimal, op string) (*models.Portfolio, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: debit amount must be positive", models.ErrInvalidInput)
	}
	amount = models.RoundMoney(amount)
	return s.mutateCash(ctx, "debit cash", portfolioID, op, func(_ *portfolioRow, balance decimal.Decimal) (decimal.Decimal, error) {
		next := balance.Sub(amount)
		if next.IsNegative() {
			return decimal.Zero, &models.InsufficientFundsError{Required: amount, Available: balance}
		}
		return next, nil
	})
}

func (s *Store) CreditCash(ctx context.Context, portfolioID string, amount decimal.Decimal, op string) (*models.Portfolio, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: credit amount must be positive", models.ErrInvalidInput)
	}
	amount = models.RoundMoney(amount)
	return s.mutateCash(ctx, "credit cash", portfolioID, op, func(_ *portfolioRow, balance decimal.Decimal) (decimal.Decimal, error) {
		return balance.Add(amount), nil
	})
}

func (s *Store) ResetCash(ctx context.Context, portfolioID string, op string) (*models.Portfolio, error) {
	return s.mutateCash(ctx, "reset cash", portfolioID, op, func(row *portfolioRow, _ decimal.Decimal) (decimal.Decimal, error) {
		starting, err := decimal.NewFromString(row.StartingBalance)
		if err != nil {
			return decimal.Zero, fmt.Errorf("portfolio %s: bad starting_balance %q: %w", row.PortfolioID, row.StartingBalance, err)
		}
		return starting, nil
	})
}

// mutateCash runs the conditional-write loop for the cash balance. compute
// receives the freshly read row and its parsed balance and returns the new
// balance; business rejections from compute abort without retrying.
func (s *Store) mutateCash(ctx context.Context, what, portfolioID, op string, compute func(row *portfolioRow, balance decimal.Decimal) (decimal.Decimal, error)) (*models.Portfolio, error) {
	if op == "" {
		return nil, fmt.Errorf("%w: op id is required", models.ErrInvalidInput)
	}

	for attempt := 0; attempt < casAttempts; attempt++ {
		row, err := selectRow[portfolioRow](ctx, s, tablePortfolio, portfolioID)
		if err != nil {
			return nil, transientErr(what, err)
		}
		if row == nil {
			return nil, fmt.Errorf("portfolio %s: %w", portfolioID, models.ErrNotFound)
		}
		if row.LastOp == op {
			return row.toModel()
		}

		balance, err := decimal.NewFromString(row.CashBalance)
		if err != nil {
			return nil, fmt.Errorf("portfolio %s: bad cash_balance %q: %w", portfolioID, row.CashBalance, err)
		}
		next, err := compute(row, balance)
		if err != nil {
			return nil, err
		}

		sql := `UPDATE $rid SET cash_balance = $cash, version = $next_version, last_op = $op, updated_at = $now WHERE version = $expected`
		updated, err := queryRows[portfolioRow](ctx, s, sql, map[string]any{
			"rid":          surrealmodels.NewRecordID(tablePortfolio, portfolioID),
			"cash":         models.RoundMoney(next).String(),
			"next_version": row.Version + 1,
			"op":           op,
			"now":          time.Now().UTC(),
			"expected":     row.Version,
		})
		if err != nil {
			return nil, transientErr(what, err)
		}
		if len(updated) > 0 {
			return updated[0].toModel()
		}
	}
	return nil, fmt.Errorf("%s: portfolio %s: %w", what, portfolioID, models.ErrConcurrentModification)
}

func (s *Store) GetHolding(ctx context.Context, portfolioID, symbol string) (*models.Holding, error) {
	row, err := selectRow[holdingRow](ctx, s, tableHolding, models.HoldingID(portfolioID, symbol))
	if err != nil {
		return nil, transientErr("get holding", err)
	}
	if row == nil || row.isTombstone() {
		return nil, fmt.Errorf("holding %s in %s: %w", strings.ToUpper(symbol), portfolioID, models.ErrNotFound)
	}
	return row.toModel()
}

func (s *Store) ListHoldings(ctx context.Context, portfolioID string) ([]*models.Holding, error) {
	sql := "SELECT * FROM holding WHERE portfolio_id = $pid ORDER BY symbol ASC"
	rows, err := queryRows[holdingRow](ctx, s, sql, map[string]any{"pid": portfolioID})
	if err != nil {
		return nil, transientErr("list holdings", err)
	}

	var holdings []*models.Holding
	for i := range rows {
		if rows[i].isTombstone() {
			continue
		}
		h, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

func (s *Store) UpsertHolding(ctx context.Context, portfolioID, symbol string, assetType models.AssetType, addShares, price decimal.Decimal, op string) (*models.Holding, error) {
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
	id := models.HoldingID(portfolioID, symbol)

	for attempt := 0; attempt < casAttempts; attempt++ {
		row, err := selectRow[holdingRow](ctx, s, tableHolding, id)
		if err != nil {
			return nil, transientErr("upsert holding", err)
		}

		if row == nil {
			created, err := s.createHolding(ctx, id, portfolioID, symbol, assetType, addShares, price, op)
			if err != nil {
				if isAlreadyExistsError(err) {
					// Lost the create race; merge into the winner's row.
					continue
				}
				return nil, transientErr("upsert holding", err)
			}
			return created.toModel()
		}

		if row.LastOp == op {
			return row.toModel()
		}

		shares, avg, err := row.position()
		if err != nil {
			return nil, err
		}
		// A tombstone holds zero shares at zero cost, so the merge below
		// degenerates to a fresh position at the buy price.
		newShares, newAvg := models.WeightedAverageCost(shares, avg, addShares, price)

		updated, err := s.casUpdateHolding(ctx, id, row.Version, newShares, newAvg, op)
		if err != nil {
			return nil, transientErr("upsert holding", err)
		}
		if updated != nil {
			return updated.toModel()
		}
	}
	return nil, fmt.Errorf("upsert holding %s: %w", id, models.ErrConcurrentModification)
}

func (s *Store) ReduceHolding(ctx context.Context, portfolioID, symbol string, shares decimal.Decimal, op string) (*models.Holding, error) {
	if op == "" {
		return nil, fmt.Errorf("%w: op id is required", models.ErrInvalidInput)
	}
	if !shares.IsPositive() {
		return nil, fmt.Errorf("%w: shares to reduce must be positive", models.ErrInvalidInput)
	}
	shares = models.RoundShares(shares)
	upper := strings.ToUpper(symbol)
	id := models.HoldingID(portfolioID, symbol)

	for attempt := 0; attempt < casAttempts; attempt++ {
		row, err := selectRow[holdingRow](ctx, s, tableHolding, id)
		if err != nil {
			return nil, transientErr("reduce holding", err)
		}
		if row == nil {
			return nil, &models.InsufficientSharesError{Symbol: upper, Requested: shares, Owned: decimal.Zero}
		}

		if row.LastOp == op {
			if row.isTombstone() {
				s.sweepTombstone(ctx, id, row.Version)
				return nil, nil
			}
			return row.toModel()
		}

		owned, avg, err := row.position()
		if err != nil {
			return nil, err
		}
		if owned.LessThan(shares) {
			return nil, &models.InsufficientSharesError{Symbol: upper, Requested: shares, Owned: owned}
		}

		remaining := models.RoundShares(owned.Sub(shares))
		if remaining.LessThan(models.DustShares) {
			// Position emptied (or left as dust). Tombstone it under this
			// op so a retry resolves unambiguously, then sweep the row.
			swept, err := s.casUpdateHolding(ctx, id, row.Version, decimal.Zero, decimal.Zero, op)
			if err != nil {
				return nil, transientErr("reduce holding", err)
			}
			if swept == nil {
				continue
			}
			s.sweepTombstone(ctx, id, swept.Version)
			return nil, nil
		}

		updated, err := s.casUpdateHolding(ctx, id, row.Version, remaining, avg, op)
		if err != nil {
			return nil, transientErr("reduce holding", err)
		}
		if updated != nil {
			return updated.toModel()
		}
	}
	return nil, fmt.Errorf("reduce holding %s: %w", id, models.ErrConcurrentModification)
}

func (s *Store) DeleteHoldings(ctx context.Context, portfolioID string) (int, error) {
	sql := "DELETE holding WHERE portfolio_id = $pid RETURN BEFORE"
	rows, err := queryRows[holdingRow](ctx, s, sql, map[string]any{"pid": portfolioID})
	if err != nil {
		return 0, transientErr("delete holdings", err)
	}

	count := 0
	for i := range rows {
		if !rows[i].isTombstone() {
			count++
		}
	}
	return count, nil
}

func (s *Store) createHolding(ctx context.Context, id, portfolioID, symbol string, assetType models.AssetType, shares, price decimal.Decimal, op string) (*holdingRow, error) {
	now := time.Now().UTC()
	row := &holdingRow{
		HoldingID:   id,
		PortfolioID: portfolioID,
		Symbol:      strings.ToUpper(symbol),
		AssetType:   string(assetType),
		Shares:      shares.String(),
		AverageCost: price.String(),
		Version:     1,
		LastOp:      op,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := queryRows[holdingRow](ctx, s, "CREATE $rid CONTENT $row", map[string]any{
		"rid": surrealmodels.NewRecordID(tableHolding, id),
		"row": row,
	})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("create returned no rows")
	}
	return &created[0], nil
}

// casUpdateHolding writes the new position conditioned on the version the
// caller read. Returns nil without error on a CAS miss.
func (s *Store) casUpdateHolding(ctx context.Context, id string, expectedVersion int64, shares, avg decimal.Decimal, op string) (*holdingRow, error) {
	sql := `UPDATE $rid SET shares = $shares, average_cost = $avg, version = $next_version, last_op = $op, updated_at = $now WHERE version = $expected`
	updated, err := queryRows[holdingRow](ctx, s, sql, map[string]any{
		"rid":          surrealmodels.NewRecordID(tableHolding, id),
		"shares":       shares.String(),
		"avg":          avg.String(),
		"next_version": expectedVersion + 1,
		"op":           op,
		"now":          time.Now().UTC(),
		"expected":     expectedVersion,
	})
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return nil, nil
	}
	return &updated[0], nil
}

// sweepTombstone deletes a zero-share row left by a completed removal. Best
// effort: readers already treat tombstones as absent, and the version guard
// keeps a concurrent re-buy's row intact.
func (s *Store) sweepTombstone(ctx context.Context, id string, version int64) {
	sql := "DELETE $rid WHERE shares = $zero AND version = $version"
	if _, err := queryRows[holdingRow](ctx, s, sql, map[string]any{
		"rid":     surrealmodels.NewRecordID(tableHolding, id),
		"zero":    "0",
		"version": version,
	}); err != nil {
		s.logger.Warn().Err(err).Str("holding", id).Msg("Failed to sweep removed holding")
	}
}

func (s *Store) AppendTransaction(ctx context.Context, tx *models.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: transaction id is required", models.ErrInvalidInput)
	}

	// UPSERT keyed by the transaction's own id: a retried append lands on
	// the same row instead of duplicating the journal entry.
	_, err := queryRows[transactionRow](ctx, s, "UPSERT $rid CONTENT $row", map[string]any{
		"rid": surrealmodels.NewRecordID(tableTrade, tx.ID),
		"row": newTransactionRow(tx),
	})
	if err != nil {
		return transientErr("append transaction", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, portfolioID string, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	// ULID ids are lexicographically time-ordered, so id DESC is newest
	// first with a stable tiebreak.
	sql := "SELECT * FROM trade WHERE portfolio_id = $pid ORDER BY transaction_id DESC LIMIT $limit"
	rows, err := queryRows[transactionRow](ctx, s, sql, map[string]any{"pid": portfolioID, "limit": limit})
	if err != nil {
		return nil, transientErr("list transactions", err)
	}

	txs := make([]*models.Transaction, 0, len(rows))
	for i := range rows {
		tx, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (s *Store) PurgeTransactions(ctx context.Context, portfolioID string) (int, error) {
	sql := "DELETE trade WHERE portfolio_id = $pid RETURN BEFORE"
	rows, err := queryRows[transactionRow](ctx, s, sql, map[string]any{"pid": portfolioID})
	if err != nil {
		return 0, transientErr("purge transactions", err)
	}

	s.logger.Info().
		Str("portfolio", portfolioID).
		Int("purged", len(rows)).
		Msg("Transaction journal purged")
	return len(rows), nil
}
