package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the ledger and execution engine. Wrap with
// fmt.Errorf("...: %w", Err...) to add context; callers match with
// errors.Is. The structured variants below carry amounts for callers that
// need more than the category.
var (
	// ErrNotFound indicates a missing portfolio, holding, or transaction.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the caller does not own the target portfolio.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput indicates a request that fails validation before any
	// state is touched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientFunds indicates a buy whose total cost exceeds the
	// available cash balance. Nothing is mutated.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares indicates a sell of more shares than held.
	// Nothing is mutated.
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrConcurrentModification indicates a conditional write lost the race
	// to another writer and the operation was not applied.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrTransientStore indicates the storage backend failed in a way that
	// is safe to retry (timeouts, dropped connections).
	ErrTransientStore = errors.New("transient store failure")

	// ErrSideEffect indicates a post-commit side effect (achievements,
	// leaderboard) failed. The trade itself is durable.
	ErrSideEffect = errors.New("side effect failure")

	// ErrPartialCommit indicates a multi-step mutation failed after at
	// least one step durably applied. The ledger may be inconsistent until
	// reconciled; see PartialCommitError for the applied steps.
	ErrPartialCommit = errors.New("partial commit")
)

// InsufficientFundsError reports the exact shortfall of a rejected buy.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s (short %s)",
		FormatUSD(e.Required), FormatUSD(e.Available), FormatUSD(e.Shortfall()))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// Shortfall is the amount the buy exceeds the balance by.
func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return RoundMoney(e.Required.Sub(e.Available))
}

// InsufficientSharesError reports a sell of more shares than the position holds.
type InsufficientSharesError struct {
	Symbol    string
	Requested decimal.Decimal
	Owned     decimal.Decimal
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares: sell %s %s requested, %s owned",
		e.Requested.String(), e.Symbol, e.Owned.String())
}

func (e *InsufficientSharesError) Unwrap() error { return ErrInsufficientShares }

// PartialCommitError records which ledger steps durably applied before a
// later step failed for good. It is never swallowed: executors return it to
// the caller so the inconsistency is visible and reconcilable.
type PartialCommitError struct {
	TransactionID string
	Applied       []string
	Cause         error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("partial commit: applied [%s], then: %v",
		strings.Join(e.Applied, ", "), e.Cause)
}

// Unwrap exposes both the partial-commit category and the underlying cause,
// so errors.Is matches either.
func (e *PartialCommitError) Unwrap() []error {
	return []error{ErrPartialCommit, e.Cause}
}

// ErrorKind maps an error to its wire code for API responses and logs.
// Unrecognized errors map to "internal".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrPartialCommit):
		// Checked first: PartialCommitError unwraps to its cause too, and a
		// partial commit wrapping InsufficientFunds or a transient failure
		// must never be reported as a clean rejection or as retryable.
		return "partial_commit"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInsufficientShares):
		return "insufficient_shares"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrTransientStore):
		return "transient_store"
	case errors.Is(err, ErrSideEffect):
		return "side_effect"
	default:
		return "internal"
	}
}
