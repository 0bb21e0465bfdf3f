package api

import (
	"encoding/json"
	"net/http"

	"github.com/carelinq/datachat/internal/log"
)

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader the status is already sent; the
// error is logged and the response left as-is.
func writeJSON(logger log.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(logger log.Logger, w http.ResponseWriter, status int, message string) {
	writeJSON(logger, w, status, ErrorResponse{Error: message})
}
