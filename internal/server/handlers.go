package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/models"
)

// Transaction listing bounds. The journal is append-only and unbounded, so
// the endpoint always pages from the newest entry.
const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 500
)

// --- Portfolio handlers ---

// handlePortfolios serves the collection endpoint. POST provisions the
// caller's simulation portfolio (get-or-create); GET returns its valued
// summary, provisioning on first read so a fresh user sees an empty
// portfolio instead of a 404.
func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	ctx := r.Context()
	userID := common.ResolveUserID(ctx)

	portfolio, err := s.app.PortfolioService.GetOrProvision(ctx, userID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	if r.Method == http.MethodPost {
		WriteJSON(w, http.StatusOK, portfolio)
		return
	}

	summary, err := s.app.PortfolioService.GetSummary(ctx, userID, portfolio.ID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePortfolioGet(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	summary, err := s.app.PortfolioService.GetSummary(r.Context(), common.ResolveUserID(r.Context()), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

func (s *Server) handlePortfolioReset(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	userID := common.ResolveUserID(ctx)

	result, err := s.app.PortfolioService.Reset(ctx, userID, id)
	if err != nil && retryableConflict(err) {
		s.logger.Info().
			Str("portfolio", id).
			Msg("Reset conflicted, retrying once")
		result, err = s.app.PortfolioService.Reset(ctx, userID, id)
	}
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := defaultTransactionLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if v > maxTransactionLimit {
			v = maxTransactionLimit
		}
		limit = v
	}

	txns, err := s.app.PortfolioService.ListTransactions(r.Context(), common.ResolveUserID(r.Context()), id, limit)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"count":        len(txns),
	})
}

// --- Market data handlers ---

func (s *Server) handleMarketQuote(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/market/quotes/")
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusBadRequest, "symbol is required in path")
		return
	}
	assetType := models.NormalizeAssetType(r.URL.Query().Get("asset_type"))

	quote, err := s.app.QuoteService.GetQuote(r.Context(), symbol, assetType)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quote)
}
