package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/rtirumala2025/investx/internal/models"
)

func TestWriteServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", fmt.Errorf("%w: bad symbol", models.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"forbidden", fmt.Errorf("%w: not yours", models.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"not found", fmt.Errorf("%w: no portfolio", models.ErrNotFound), http.StatusNotFound, "not_found"},
		{"insufficient funds", &models.InsufficientFundsError{Required: decimal.RequireFromString("100"), Available: decimal.RequireFromString("50")}, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"insufficient shares", &models.InsufficientSharesError{Symbol: "AAPL", Requested: decimal.RequireFromString("10"), Owned: decimal.RequireFromString("5")}, http.StatusUnprocessableEntity, "insufficient_shares"},
		{"concurrent modification", fmt.Errorf("debit: %w", models.ErrConcurrentModification), http.StatusConflict, "concurrent_modification"},
		{"transient store", fmt.Errorf("query: %w", models.ErrTransientStore), http.StatusServiceUnavailable, "transient_store"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if resp.Partial {
				t.Error("partial should only be set for partial commits")
			}
		})
	}
}

func TestWriteServiceError_PartialCommit(t *testing.T) {
	err := &models.PartialCommitError{
		TransactionID: "tx-1",
		Applied:       []string{"upsert_holding", "debit_cash"},
		Cause:         fmt.Errorf("append: %w", models.ErrTransientStore),
	}

	rec := httptest.NewRecorder()
	WriteServiceError(rec, err)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != "partial_commit" {
		t.Errorf("code = %q, want partial_commit", resp.Code)
	}
	if !resp.Partial {
		t.Error("partial flag should be set")
	}
	if !strings.Contains(resp.Error, "debit_cash") {
		t.Errorf("error should name applied steps, got %q", resp.Error)
	}
}

// A partial commit wrapping a business rejection must report as a partial
// commit, never as the clean rejection the cause suggests.
func TestWriteServiceError_PartialCommitWinsOverCause(t *testing.T) {
	err := &models.PartialCommitError{
		Applied: []string{"delete_holdings"},
		Cause:   fmt.Errorf("reset cash: %w", models.ErrConcurrentModification),
	}

	rec := httptest.NewRecorder()
	WriteServiceError(rec, err)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestRequireMethod_Allowed(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/test", nil)

	if !RequireMethod(rec, req, http.MethodGet, http.MethodPost) {
		t.Error("POST should be allowed")
	}
}

func TestRequireMethod_Rejected(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/test", nil)

	if RequireMethod(rec, req, http.MethodGet, http.MethodPost) {
		t.Fatal("DELETE should be rejected")
	}
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
		t.Errorf("Allow header = %q, want %q", allow, "GET, POST")
	}
}

func TestDecodeJSON_Valid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/test", strings.NewReader(`{"symbol":"AAPL"}`))

	var body struct {
		Symbol string `json:"symbol"`
	}
	if !DecodeJSON(rec, req, &body) {
		t.Fatalf("decode failed: %s", rec.Body.String())
	}
	if body.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want AAPL", body.Symbol)
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/test", strings.NewReader(`{not json`))

	var body map[string]interface{}
	if DecodeJSON(rec, req, &body) {
		t.Fatal("expected decode to fail")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
