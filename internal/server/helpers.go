package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rtirumala2025/investx/internal/models"
)

// ErrorResponse is the standard error format for REST API responses. Code is
// the machine-readable error kind; Partial marks a partial commit, telling
// the UI to refresh and reconcile rather than assume the trade rolled back.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Partial bool   `json:"partial,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteServiceError maps a service-layer error onto the wire: the status
// comes from the error kind, the kind itself travels as the code.
func WriteServiceError(w http.ResponseWriter, err error) {
	kind := models.ErrorKind(err)
	WriteJSON(w, statusForKind(kind), ErrorResponse{
		Error:   err.Error(),
		Code:    kind,
		Partial: kind == "partial_commit",
	})
}

// statusForKind translates an error kind into an HTTP status code. Partial
// commits are 502: the request did not complete, but ledger writes landed, so
// neither a clean 4xx rejection nor a retryable 503 would be honest.
func statusForKind(kind string) int {
	switch kind {
	case "invalid_input":
		return http.StatusBadRequest
	case "forbidden":
		return http.StatusForbidden
	case "not_found":
		return http.StatusNotFound
	case "insufficient_funds", "insufficient_shares":
		return http.StatusUnprocessableEntity
	case "concurrent_modification":
		return http.StatusConflict
	case "partial_commit":
		return http.StatusBadGateway
	case "transient_store":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}
