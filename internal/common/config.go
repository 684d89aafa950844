// Package common provides shared utilities for InvestX
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for InvestX
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Trading     TradingConfig `toml:"trading"`
	Clients     ClientsConfig `toml:"clients"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds record store configuration.
// Backend selects the implementation: "surrealdb" (default) or "memory".
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// TradingConfig holds ledger defaults for newly provisioned portfolios.
// StartingBalance is a decimal string so the value survives TOML round-trips
// without float drift.
type TradingConfig struct {
	StartingBalance string `toml:"starting_balance"`
}

// GetStartingBalance parses the configured opening balance, falling back to
// 10,000.00 when unset or malformed.
func (c *TradingConfig) GetStartingBalance() decimal.Decimal {
	d, err := decimal.NewFromString(c.StartingBalance)
	if err != nil || !d.IsPositive() {
		return decimal.RequireFromString("10000.00")
	}
	return d
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	MarketData MarketDataConfig `toml:"marketdata"`
	Gamify     GamifyConfig     `toml:"gamify"`
}

// MarketDataConfig holds the quote provider API configuration
type MarketDataConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	CacheTTL  string `toml:"cache_ttl"`
}

// GetTimeout parses and returns the timeout duration
func (c *MarketDataConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCacheTTL parses and returns the quote cache TTL
func (c *MarketDataConfig) GetCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GamifyConfig holds the achievements/leaderboard service configuration.
// An empty BaseURL selects the in-process fake (local development).
type GamifyConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GamifyConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// AuthConfig holds JWT verification configuration. Tokens are issued by the
// identity service; this server only verifies them.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "investx",
			Database:  "investx",
			Username:  "root",
			Password:  "root",
		},
		Trading: TradingConfig{
			StartingBalance: "10000.00",
		},
		Clients: ClientsConfig{
			MarketData: MarketDataConfig{
				BaseURL:   "https://api.marketdata.investx.app",
				RateLimit: 10,
				Timeout:   "30s",
				CacheTTL:  "60s",
			},
			Gamify: GamifyConfig{
				RateLimit: 5,
				Timeout:   "10s",
			},
		},
		Auth: AuthConfig{
			JWTSecret: "dev-jwt-secret-change-in-production",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("INVESTX_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("INVESTX_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("INVESTX_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("INVESTX_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("INVESTX_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	if addr := os.Getenv("INVESTX_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}

	if ns := os.Getenv("INVESTX_STORAGE_NAMESPACE"); ns != "" {
		config.Storage.Namespace = ns
	}

	if db := os.Getenv("INVESTX_STORAGE_DATABASE"); db != "" {
		config.Storage.Database = db
	}

	if user := os.Getenv("INVESTX_STORAGE_USERNAME"); user != "" {
		config.Storage.Username = user
	}

	if pass := os.Getenv("INVESTX_STORAGE_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}

	if bal := os.Getenv("INVESTX_STARTING_BALANCE"); bal != "" {
		config.Trading.StartingBalance = bal
	}

	if v := os.Getenv("INVESTX_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}

	if v := os.Getenv("INVESTX_MARKETDATA_URL"); v != "" {
		config.Clients.MarketData.BaseURL = v
	}
	if v := os.Getenv("INVESTX_MARKETDATA_API_KEY"); v != "" {
		config.Clients.MarketData.APIKey = v
	}

	if v := os.Getenv("INVESTX_GAMIFY_URL"); v != "" {
		config.Clients.Gamify.BaseURL = v
	}
	if v := os.Getenv("INVESTX_GAMIFY_API_KEY"); v != "" {
		config.Clients.Gamify.APIKey = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
