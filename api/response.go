package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linchen0/tutorvault/internal/assess"
	"github.com/linchen0/tutorvault/internal/index"
	"github.com/linchen0/tutorvault/internal/log"
	"github.com/linchen0/tutorvault/internal/vault"
)

// writeJSON writes a JSON response with the given status code. Encoding
// failures after WriteHeader cannot reach the client; they are only logged.
func writeJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message}, logger)
}

// writeDomainError maps sentinel errors from the core packages onto HTTP
// statuses. Unknown errors become opaque 500s; the detail stays in the log.
func writeDomainError(w http.ResponseWriter, err error, logger log.Logger) {
	switch {
	case errors.Is(err, vault.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error(), logger)
	case errors.Is(err, vault.ErrInvalidInput), errors.Is(err, vault.ErrInvalidCategory):
		writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), logger)
	case errors.Is(err, index.ErrWorkspaceNotFound):
		writeError(w, http.StatusNotFound, "workspace_not_found", err.Error(), logger)
	case errors.Is(err, index.ErrServiceUnavailable):
		writeError(w, http.StatusBadGateway, "index_unavailable", err.Error(), logger)
	case errors.Is(err, assess.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error(), logger)
	case errors.Is(err, assess.ErrAlreadyGraded):
		writeError(w, http.StatusConflict, "already_graded", err.Error(), logger)
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal server error", logger)
	}
}
