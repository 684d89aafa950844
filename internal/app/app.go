// Package app wires configuration, storage, clients, and services into the
// shared core used by cmd/investx-server and cmd/investx-admin.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rtirumala2025/investx/internal/clients/gamify"
	"github.com/rtirumala2025/investx/internal/clients/marketdata"
	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/interfaces"
	"github.com/rtirumala2025/investx/internal/services/portfolio"
	"github.com/rtirumala2025/investx/internal/services/quote"
	"github.com/rtirumala2025/investx/internal/services/trade"
	"github.com/rtirumala2025/investx/internal/storage"
)

// App holds all initialized services and clients. It is the shared core used
// by both binaries.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Store            interfaces.LedgerStore
	MarketDataClient interfaces.MarketDataClient
	GamifyClient     interfaces.GamifyClient
	QuoteService     interfaces.QuoteService
	TradeService     interfaces.TradeService
	PortfolioService interfaces.PortfolioService
	StartupTime      time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes storage, clients, and services from configuration.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load configuration - check provided path, INVESTX_CONFIG, then binary
	// dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("INVESTX_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "investx.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/investx.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := common.NewLoggerFromConfig(config.Logging)

	// Initialize the ledger store
	store, err := storage.NewLedgerStore(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := NewAppWithDeps(config, logger, store)
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// NewAppWithDeps assembles the service graph on top of an already-open
// store. Used directly by tests that supply an in-memory ledger.
func NewAppWithDeps(config *common.Config, logger *common.Logger, store interfaces.LedgerStore) *App {
	// Market data: real gateway client when an API key is configured,
	// otherwise the deterministic development fake.
	var marketClient interfaces.MarketDataClient
	if config.Clients.MarketData.APIKey != "" {
		marketClient = marketdata.NewClient(config.Clients.MarketData.APIKey,
			marketdata.WithBaseURL(config.Clients.MarketData.BaseURL),
			marketdata.WithLogger(logger),
			marketdata.WithRateLimit(config.Clients.MarketData.RateLimit),
			marketdata.WithTimeout(config.Clients.MarketData.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Marketdata API key not configured - serving seeded development quotes")
		marketClient = marketdata.NewFake()
	}

	// Gamify: HTTP client when a base URL is configured, otherwise the
	// in-process fake.
	var gamifyClient interfaces.GamifyClient
	if config.Clients.Gamify.BaseURL != "" {
		gamifyClient = gamify.NewClient(config.Clients.Gamify.APIKey,
			gamify.WithBaseURL(config.Clients.Gamify.BaseURL),
			gamify.WithLogger(logger),
			gamify.WithRateLimit(config.Clients.Gamify.RateLimit),
			gamify.WithTimeout(config.Clients.Gamify.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("Gamify service not configured - achievements tracked in process only")
		gamifyClient = gamify.NewFake()
	}

	quoteService := quote.NewService(marketClient, config.Clients.MarketData.GetCacheTTL(), logger)

	startingBalance := config.Trading.GetStartingBalance()
	tradeService := trade.NewService(store, quoteService, gamifyClient, startingBalance, logger)
	portfolioService := portfolio.NewService(store, quoteService, gamifyClient, startingBalance, logger)

	return &App{
		Config:           config,
		Logger:           logger,
		Store:            store,
		MarketDataClient: marketClient,
		GamifyClient:     gamifyClient,
		QuoteService:     quoteService,
		TradeService:     tradeService,
		PortfolioService: portfolioService,
		StartupTime:      time.Now(),
	}
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
}
