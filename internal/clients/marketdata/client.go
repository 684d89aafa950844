// Package marketdata provides a client for the InvestX quote gateway
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

const (
	DefaultBaseURL   = "https://api.marketdata.investx.app"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
)

// Client implements the MarketDataClient interface
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new quote gateway client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketdata API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// flexDecimal handles JSON values that may be a number, a numeric string, or
// a placeholder like "N/A" that the gateway emits outside market hours.
type flexDecimal decimal.Decimal

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = flexDecimal(decimal.Zero)
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			*f = flexDecimal(decimal.Zero)
			return nil
		}
		*f = flexDecimal(d)
		return nil
	}
	var d decimal.Decimal
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("cannot unmarshal %s into decimal", string(data))
	}
	*f = flexDecimal(d)
	return nil
}

func (f flexDecimal) Decimal() decimal.Decimal { return decimal.Decimal(f) }

// flexInt64 handles JSON values that may be either a number or a string.
type flexInt64 int64

func (f *flexInt64) UnmarshalJSON(data []byte) error {
	var num int64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexInt64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexInt64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into int64", string(data))
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", path).Msg("Marketdata API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return models.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// quoteResponse represents the gateway quote payload
type quoteResponse struct {
	Symbol        string      `json:"symbol"`
	Price         flexDecimal `json:"price"`
	PreviousClose flexDecimal `json:"previous_close"`
	Change        flexDecimal `json:"change"`
	ChangePct     flexDecimal `json:"change_pct"`
	Timestamp     flexInt64   `json:"timestamp"`
}

// providerSymbol maps a trading symbol to the gateway's ticker convention.
// Crypto trades against USD on the gateway.
func providerSymbol(symbol string, assetType models.AssetType) string {
	if assetType == models.AssetCrypto {
		return symbol + "-USD"
	}
	return symbol
}

// GetLivePrice retrieves the latest quote for a symbol
func (c *Client) GetLivePrice(ctx context.Context, symbol string, assetType models.AssetType) (*models.Quote, error) {
	path := fmt.Sprintf("/v1/quotes/%s", providerSymbol(symbol, assetType))

	var resp quoteResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	price := resp.Price.Decimal()
	if !price.IsPositive() {
		// The gateway returns zeroed payloads for unknown or delisted tickers.
		return nil, fmt.Errorf("no tradable price for %s: %w", symbol, models.ErrNotFound)
	}

	quote := &models.Quote{
		Symbol:        symbol,
		AssetType:     assetType,
		Price:         price,
		PreviousClose: resp.PreviousClose.Decimal(),
		Change:        resp.Change.Decimal(),
		ChangePct:     resp.ChangePct.Decimal(),
	}
	if resp.Timestamp > 0 {
		quote.Timestamp = time.Unix(int64(resp.Timestamp), 0).UTC()
	}

	return quote, nil
}

// Ensure Client implements MarketDataClient
var _ interfaces.MarketDataClient = (*Client)(nil)
