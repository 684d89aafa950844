package marketdata

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

// Fake is an in-memory MarketDataClient used when no gateway API key is
// configured. Prices are static until changed with SetPrice, which keeps
// local development and demos deterministic.
type Fake struct {
	mu     sync.RWMutex
	quotes map[string]models.Quote
	now    func() time.Time
}

// NewFake creates a fake client seeded with a small table of liquid symbols
func NewFake() *Fake {
	f := &Fake{
		quotes: make(map[string]models.Quote),
		now:    time.Now,
	}
	for _, seed := range [][3]string{
		{"AAPL", "232.50", "230.10"},
		{"MSFT", "508.20", "504.80"},
		{"GOOGL", "206.75", "204.30"},
		{"AMZN", "228.10", "226.45"},
		{"TSLA", "345.60", "339.90"},
		{"NVDA", "178.40", "176.25"},
		{"SPY", "645.30", "642.10"},
		{"VTI", "318.45", "316.80"},
		{"BTC", "117250.00", "115890.00"},
		{"ETH", "4685.00", "4590.00"},
	} {
		f.SetPrice(seed[0], decimal.RequireFromString(seed[1]), decimal.RequireFromString(seed[2]))
	}
	return f
}

// SetPrice sets or replaces the quote served for a symbol
func (f *Fake) SetPrice(symbol string, price, previousClose decimal.Decimal) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[key] = models.Quote{
		Symbol:        key,
		Price:         price,
		PreviousClose: previousClose,
	}
}

// GetLivePrice returns the seeded quote for a symbol
func (f *Fake) GetLivePrice(_ context.Context, symbol string, assetType models.AssetType) (*models.Quote, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	f.mu.RLock()
	quote, ok := f.quotes[key]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no quote for %s: %w", symbol, models.ErrNotFound)
	}

	quote.AssetType = assetType
	quote.Timestamp = f.now().UTC()
	return &quote, nil
}

// Ensure Fake implements MarketDataClient
var _ interfaces.MarketDataClient = (*Fake)(nil)
