package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/rtirumala2025/investx/internal/models"
)

const (
	// casAttempts bounds the read-apply-write loop on version conflicts.
	casAttempts = 3

	// transientRetries is the number of backoff retries after the first
	// failed attempt, for 3 attempts total.
	transientRetries = 2

	retryInitialWait = 50 * time.Millisecond
)

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no record")
}

func isAlreadyExistsError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// withRetry runs fn with bounded exponential backoff. fn wraps errors that
// must not be retried in backoff.Permanent. Blind re-runs of writes are
// safe here: every write is version-conditioned, so a retried update that
// actually landed the first time surfaces as a CAS miss, and the caller's
// re-read resolves it through the row's op id.
func (s *Store) withRetry(ctx context.Context, fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialWait
	return backoff.Retry(fn, backoff.WithContext(backoff.WithMaxRetries(bo, transientRetries), ctx))
}

// queryRows runs a SurrealQL statement and returns the first result set.
func queryRows[T any](ctx context.Context, s *Store, sql string, vars map[string]any) ([]T, error) {
	var rows []T
	err := s.withRetry(ctx, func() error {
		results, err := surrealdb.Query[[]T](ctx, s.db, sql, vars)
		if err != nil {
			if isAlreadyExistsError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		rows = nil
		if results != nil && len(*results) > 0 {
			rows = (*results)[0].Result
		}
		return nil
	})
	return rows, err
}

// selectRow fetches a single record by id; nil when the record is absent.
func selectRow[T any](ctx context.Context, s *Store, table, id string) (*T, error) {
	var row *T
	err := s.withRetry(ctx, func() error {
		r, err := surrealdb.Select[T](ctx, s.db, surrealmodels.NewRecordID(table, id))
		if err != nil {
			if isNotFoundError(err) {
				row = nil
				return nil
			}
			return err
		}
		row = r
		return nil
	})
	return row, err
}

// transientErr classifies a storage failure that survived the retry budget.
// Context cancellation passes through untouched so callers do not mistake
// their own deadline for a backend fault.
func transientErr(what string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %v", what, models.ErrTransientStore, err)
}
