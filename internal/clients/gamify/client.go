// Package gamify provides a client for the InvestX gamification service,
// which owns achievements, XP, and the leaderboard.
package gamify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/models"
)

const (
	DefaultBaseURL   = "https://api.gamify.investx.app"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second
)

// Client implements the GamifyClient interface over HTTP
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

// NewClient creates a new gamify client
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
	return fmt.Sprintf("gamify API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// do performs a rate-limited request with a JSON body and decodes the reply
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().Str("method", method).Str("url", path).Msg("Gamify API request")

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
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
			Endpoint:   path,
		}
	}

	if result == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// awardRequest is the achievement grant payload
type awardRequest struct {
	Key             string         `json:"key"`
	Event           map[string]any `json:"event,omitempty"`
	XPReward        int            `json:"xp_reward,omitempty"`
	AllowDuplicates bool           `json:"allow_duplicates,omitempty"`
}

// Award grants an achievement to a user. The gamify service deduplicates per
// (user, key) unless opts.AllowDuplicates is set.
func (c *Client) Award(ctx context.Context, userID, key string, event map[string]any, opts models.AwardOptions) (*models.AwardResult, error) {
	body := awardRequest{
		Key:             key,
		Event:           event,
		XPReward:        opts.XPReward,
		AllowDuplicates: opts.AllowDuplicates,
	}

	var result models.AwardResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/v1/users/%s/achievements", userID), body, &result); err != nil {
		return nil, fmt.Errorf("award %s: %w: %w", key, models.ErrSideEffect, err)
	}
	return &result, nil
}

// ApplyDelta pushes an incremental XP and net-worth update to the leaderboard
func (c *Client) ApplyDelta(ctx context.Context, delta *models.LeaderboardDelta) error {
	if err := c.do(ctx, http.MethodPost, "/v1/leaderboard/deltas", delta, nil); err != nil {
		return fmt.Errorf("apply leaderboard delta: %w: %w", models.ErrSideEffect, err)
	}
	return nil
}

// GetUserRank returns the user's leaderboard standing. ErrNotFound means the
// user has not appeared on the board yet.
func (c *Client) GetUserRank(ctx context.Context, userID string) (*models.RankInfo, error) {
	var rank models.RankInfo
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/v1/leaderboard/users/%s", userID), nil, &rank); err != nil {
		return nil, err
	}
	return &rank, nil
}

// Ensure Client implements GamifyClient
var _ interfaces.GamifyClient = (*Client)(nil)
