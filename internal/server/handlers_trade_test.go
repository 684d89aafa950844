package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

func tradeJSON(t *testing.T, body map[string]interface{}) *strings.Reader {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return strings.NewReader(string(raw))
}

func TestHandleTrade_BuySuccess(t *testing.T) {
	var captured *models.TradeRequest
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			captured = req
			return &models.TradeResult{
				TransactionID: "01JC0000000000000000000001",
				PortfolioID:   req.PortfolioID,
				State:         models.TradeStateDone,
				Side:          req.Side,
				Symbol:        req.Symbol,
				Shares:        req.Shares,
				Price:         req.Price,
				Notional:      decimal.RequireFromString("1500.00"),
				Fee:           decimal.RequireFromString("1.50"),
				TotalCost:     decimal.RequireFromString("1501.50"),
				CashBalance:   decimal.RequireFromString("8498.50"),
			}, nil
		},
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{
		"symbol": "AAPL",
		"shares": "10",
		"price":  "150.00",
	})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured == nil {
		t.Fatal("expected executor to be called")
	}
	if captured.UserID != "user-1" {
		t.Errorf("expected user id user-1 from context, got %q", captured.UserID)
	}
	if captured.PortfolioID != "user-1_sim" {
		t.Errorf("expected portfolio id from path, got %q", captured.PortfolioID)
	}
	if captured.Side != models.TransactionBuy {
		t.Errorf("expected buy side, got %q", captured.Side)
	}
	if !captured.Shares.Equal(decimal.RequireFromString("10")) {
		t.Errorf("expected 10 shares, got %s", captured.Shares)
	}

	var result models.TradeResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !result.CashBalance.Equal(decimal.RequireFromString("8498.50")) {
		t.Errorf("expected cash balance 8498.50, got %s", result.CashBalance)
	}
}

func TestHandleTrade_SellSide(t *testing.T) {
	var captured *models.TradeRequest
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			captured = req
			return &models.TradeResult{State: models.TradeStateDone}, nil
		},
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{"symbol": "AAPL", "shares": "5", "price": "170.00"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/sell", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Side != models.TransactionSell {
		t.Errorf("expected sell side, got %q", captured.Side)
	}
}

func TestHandleTrade_InsufficientFundsNotRetried(t *testing.T) {
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			return nil, &models.InsufficientFundsError{
				Required:  decimal.RequireFromString("1501.50"),
				Available: decimal.RequireFromString("1000.00"),
			}
		},
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{"symbol": "AAPL", "shares": "10", "price": "150.00"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	if trade.calls != 1 {
		t.Errorf("rejections must not be retried, got %d calls", trade.calls)
	}
	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "insufficient_funds" {
		t.Errorf("expected code insufficient_funds, got %q", resp.Code)
	}
	if !strings.Contains(resp.Error, "$501.50") {
		t.Errorf("expected shortfall in message, got %q", resp.Error)
	}
}

func TestHandleTrade_ConflictRetriedOnce(t *testing.T) {
	trade := &mockTradeService{}
	trade.execute = func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
		if trade.calls == 1 {
			return nil, fmt.Errorf("debit cash: %w", models.ErrConcurrentModification)
		}
		return &models.TradeResult{State: models.TradeStateDone}, nil
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{"symbol": "AAPL", "shares": "10", "price": "150.00"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed with 200, got %d", rec.Code)
	}
	if trade.calls != 2 {
		t.Errorf("expected 2 executor calls, got %d", trade.calls)
	}
}

func TestHandleTrade_PersistentConflictReturns409(t *testing.T) {
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			return nil, fmt.Errorf("debit cash: %w", models.ErrConcurrentModification)
		},
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{"symbol": "AAPL", "shares": "10", "price": "150.00"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rec.Code)
	}
	if trade.calls != 2 {
		t.Errorf("expected exactly one retry (2 calls), got %d", trade.calls)
	}
}

func TestHandleTrade_PartialCommitNeverRetried(t *testing.T) {
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			return nil, &models.PartialCommitError{
				TransactionID: "01JC0000000000000000000001",
				Applied:       []string{"upsert_holding", "debit_cash"},
				Cause:         fmt.Errorf("append transaction: %w", models.ErrConcurrentModification),
			}
		},
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{"symbol": "AAPL", "shares": "10", "price": "150.00"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	if trade.calls != 1 {
		t.Errorf("partial commits must never be rerun, got %d calls", trade.calls)
	}
	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.Partial {
		t.Error("expected partial flag on response")
	}
	if resp.Code != "partial_commit" {
		t.Errorf("expected code partial_commit, got %q", resp.Code)
	}
}

func TestHandleTrade_InvalidBody(t *testing.T) {
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			t.Fatal("executor must not be called for malformed bodies")
			return nil, nil
		},
	}
	srv := newTestServer(testServices{trade: trade})

	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", strings.NewReader("{not json")), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

func TestHandleTrade_GetRejected(t *testing.T) {
	srv := newTestServer(testServices{trade: &mockTradeService{}})

	req := withUser(httptest.NewRequest(http.MethodGet, "/api/portfolios/user-1_sim/buy", nil), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("expected Allow: POST header, got %q", allow)
	}
}

func TestHandleTrade_ValidationErrorMapsTo400(t *testing.T) {
	trade := &mockTradeService{
		execute: func(ctx context.Context, req *models.TradeRequest) (*models.TradeResult, error) {
			req.Normalize()
			if err := req.Validate(); err != nil {
				return nil, err
			}
			return &models.TradeResult{State: models.TradeStateDone}, nil
		},
	}
	srv := newTestServer(testServices{trade: trade})

	body := tradeJSON(t, map[string]interface{}{"symbol": "AAPL", "shares": "-3", "price": "150.00"})
	req := withUser(httptest.NewRequest(http.MethodPost, "/api/portfolios/user-1_sim/buy", body), "user-1")
	rec := serve(srv, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "invalid_input" {
		t.Errorf("expected code invalid_input, got %q", resp.Code)
	}
}

func TestRetryableConflict(t *testing.T) {
	cm := fmt.Errorf("debit cash: %w", models.ErrConcurrentModification)
	partial := &models.PartialCommitError{Applied: []string{"debit_cash"}, Cause: cm}

	if !retryableConflict(cm) {
		t.Error("bare conflict should be retryable")
	}
	if retryableConflict(partial) {
		t.Error("partial commit wrapping a conflict must not be retryable")
	}
	if retryableConflict(models.ErrTransientStore) {
		t.Error("transient store errors are handled below the HTTP layer")
	}
	if retryableConflict(nil) {
		t.Error("nil is not retryable")
	}
}
