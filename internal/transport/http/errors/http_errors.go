package errors

import (
	"encoding/json"
	"net/http"
)

// Envelope is the public API response shape: data on success, a message
// and machine code on failure.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

type RateLimitError struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	Code          string `json:"code"`
	RetryAfterSec int64  `json:"retry_after_sec"`
}

func WriteData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message, Code: code})
}

func WriteRateLimited(w http.ResponseWriter, retryAfterSec int64) {
	writeJSON(w, http.StatusTooManyRequests, RateLimitError{
		Success:       false,
		Error:         "too many submissions, slow down",
		Code:          "RATE_LIMITED",
		RetryAfterSec: retryAfterSec,
	})
}

// WriteRaw skips the envelope; the health endpoint uses it.
func WriteRaw(w http.ResponseWriter, status int, payload any) {
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
