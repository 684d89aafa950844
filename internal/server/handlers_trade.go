package server

import (
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/common"
	"github.com/rtirumala2025/investx/internal/models"
)

// tradeBody is the request payload for buy and sell. Price is optional: zero
// or absent executes at the current quoted price (market order); a supplied
// price is used as-is because the UI already quoted it to the user.
type tradeBody struct {
	Symbol    string          `json:"symbol"`
	AssetType string          `json:"asset_type"`
	Shares    decimal.Decimal `json:"shares"`
	Price     decimal.Decimal `json:"price"`
}

// handleTrade executes a buy or sell against the portfolio in the path.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, id string, side models.TransactionType) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var body tradeBody
	if !DecodeJSON(w, r, &body) {
		return
	}

	ctx := r.Context()
	req := &models.TradeRequest{
		UserID:      common.ResolveUserID(ctx),
		PortfolioID: id,
		Side:        side,
		Symbol:      body.Symbol,
		AssetType:   models.AssetType(body.AssetType),
		Shares:      body.Shares,
		Price:       body.Price,
	}

	result, err := s.app.TradeService.Execute(ctx, req)
	if err != nil && retryableConflict(err) {
		// The executor already replayed once internally; one more end-to-end
		// attempt absorbs a second concurrent writer before the client sees
		// a 409.
		s.logger.Info().
			Str("portfolio", id).
			Str("symbol", req.Symbol).
			Msg("Trade conflicted, retrying once")
		result, err = s.app.TradeService.Execute(ctx, req)
	}
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// retryableConflict reports whether an error is a pure concurrency conflict
// that is safe to rerun end to end. Partial commits are excluded even when
// the underlying cause was a conflict: ledger writes landed, and a rerun
// would mint fresh operation ids and apply them again.
func retryableConflict(err error) bool {
	return errors.Is(err, models.ErrConcurrentModification) && !errors.Is(err, models.ErrPartialCommit)
}
