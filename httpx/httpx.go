// Package httpx holds the JSON response helpers and the error body shared by
// every handler and middleware.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in APIError.Error
const (
	CodeValidationFailed = "validation_failed"
	CodeUnauthorized     = "unauthorized"
	CodeForbidden        = "forbidden"
	CodeNotFound         = "not_found"
	CodeConflict         = "conflict"
	CodeInternal         = "internal_error"
)

// FieldError describes a single rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is the body of every non-2xx response
type APIError struct {
	Error   string       `json:"error"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// WriteJSON writes v with the given status code
func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes an APIError with the given status, code and message
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, APIError{Error: code, Message: message}, status)
}

// WriteValidationError writes a 400 listing every rejected field
func WriteValidationError(w http.ResponseWriter, fields []FieldError) {
	WriteJSON(w, APIError{
		Error:   CodeValidationFailed,
		Message: "request validation failed",
		Fields:  fields,
	}, http.StatusBadRequest)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeForbidden, message)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// Internal hides the cause; callers log it before responding
func Internal(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternal, message)
}
