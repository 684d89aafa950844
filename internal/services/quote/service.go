// Package quote serves prices with short-TTL caching and a stale fallback
// when the upstream provider is unavailable.
package quote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

// staleRetention bounds how old a last-known-good quote may be served when
// the provider is down. Stale quotes are marked Source=stale so the UI can
// flag them.
const staleRetention = 24 * time.Hour

// Service implements QuoteService on top of the market data client. Fresh
// quotes live in a short-TTL cache; every successful fetch also lands in a
// longer-lived last-known-good store used as a fallback.
type Service struct {
	client interfaces.MarketDataClient
	fresh  *cache.Cache
	stale  *cache.Cache
	logger *common.Logger
	now    func() time.Time // injectable clock for testing
}

// NewService creates a quote service caching fresh quotes for ttl.
func NewService(client interfaces.MarketDataClient, ttl time.Duration, logger *common.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Service{
		client: client,
		fresh:  cache.New(ttl, 2*ttl),
		stale:  cache.New(staleRetention, time.Hour),
		logger: logger,
		now:    time.Now,
	}
}

// GetQuote returns the current price for a symbol: from cache while fresh,
// live from the provider on a miss, and from the last known good quote when
// the provider is unavailable.
func (s *Service) GetQuote(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	}

	if cached, found := s.fresh.Get(symbol); found {
		q := cached.(models.Quote)
		q.Source = models.QuoteSourceCache
		return &q, nil
	}

	live, err := s.client.GetLivePrice(ctx, symbol, assetType)
	if err == nil && live != nil {
		q := *live
		q.Symbol = symbol
		q.Source = models.QuoteSourceLive
		if q.Timestamp.IsZero() {
			q.Timestamp = s.now().UTC()
		}
		fillChange(&q)
		// Stored by value so callers mutating the returned quote cannot
		// poison the cache.
		s.fresh.Set(symbol, q, cache.DefaultExpiration)
		s.stale.Set(symbol, q, cache.DefaultExpiration)
		return &q, nil
	}

	if cached, found := s.stale.Get(symbol); found {
		q := cached.(models.Quote)
		q.Source = models.QuoteSourceStale
		s.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Msg("Provider unavailable, serving stale quote")
		return &q, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	return nil, fmt.Errorf("%w: no quote for %s", models.ErrNotFound, symbol)
}

// GetQuotes fetches quotes for multiple symbols. Symbols that cannot be
// priced are absent from the result rather than failing the batch.
func (s *Service) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, error) {
	out := make(map[string]*models.Quote, len(symbols))
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		q, err := s.GetQuote(ctx, symbol, models.AssetStock)
		if err != nil {
			s.logger.Debug().
				Err(err).
				Str("symbol", symbol).
				Msg("Skipping unquotable symbol")
			continue
		}
		out[q.Symbol] = q
	}
	return out, nil
}

// fillChange derives the day change fields when the provider supplied a
// previous close but no precomputed change.
func fillChange(q *models.Quote) {
	if q.PreviousClose.IsZero() || !q.Change.IsZero() {
		return
	}
	q.Change = models.RoundMoney(q.Price.Sub(q.PreviousClose))
	q.ChangePct = q.Price.Sub(q.PreviousClose).
		Div(q.PreviousClose).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// Ensure Service implements QuoteService
var _ interfaces.QuoteService = (*Service)(nil)
