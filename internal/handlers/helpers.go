package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/httpclient"
)

// RequireMethod checks if the request method matches the expected method.
// Returns true if the method is allowed, false otherwise (and writes an error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// WriteRawJSON writes a pre-encoded JSON payload as-is. Used for search
// responses that pass through the index engine's body without re-encoding.
func WriteRawJSON(w http.ResponseWriter, statusCode int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	w.Write(raw)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// writeIndexError maps a document index failure onto an HTTP response. Errors
// surfaced by the index engine itself carry their upstream status code and
// message; anything else (connection refused, timeout) becomes a 502.
func writeIndexError(w http.ResponseWriter, logger arbor.ILogger, err error, action string) {
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		if logger != nil {
			logger.Warn().Err(err).Int("status", apiErr.StatusCode).Msgf("Index %s failed", action)
		}
		WriteError(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	if logger != nil {
		logger.Error().Err(err).Msgf("Index %s failed", action)
	}
	WriteError(w, http.StatusBadGateway, "Search index unavailable")
}

// parseIntParam parses an integer query parameter, returning the fallback for
// missing, malformed, or negative values.
func parseIntParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
