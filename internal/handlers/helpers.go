package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	logpkg "github.com/benvon/catalog-proxy/internal/logger"
)

// CacheHeader reports whether a response was served from the cache.
const CacheHeader = "X-Cache"

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error              string   `json:"error"`
	Message            string   `json:"message,omitempty"`
	Details            string   `json:"details,omitempty"`
	RetryAfter         int      `json:"retryAfter,omitempty"`
	AvailableEndpoints []string `json:"availableEndpoints,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondPayload writes an already encoded JSON body and marks its cache status.
func respondPayload(w http.ResponseWriter, payload []byte, cached bool) {
	w.Header().Set("Content-Type", "application/json")
	if cached {
		w.Header().Set(CacheHeader, "HIT")
	} else {
		w.Header().Set(CacheHeader, "MISS")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondError(w, status, ErrorResponse{Error: errorType, Message: message})
}

// respondError sends body, sanitizing free text and setting Retry-After when present.
func respondError(w http.ResponseWriter, status int, body ErrorResponse) {
	body.Message = logpkg.SanitizeErrorString(body.Message)
	body.Details = logpkg.SanitizeErrorString(body.Details)
	if body.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	}
	respondJSON(w, status, body)
}
