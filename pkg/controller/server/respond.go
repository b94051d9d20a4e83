package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/utils/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Default().Warn("failed to encode response", "error", err)
	}
}

// respondError maps the sentinel error taxonomy to HTTP statuses.
// Unclassified errors return a generic body so internal detail never
// reaches the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.From(r.Context())

	switch {
	case errors.Is(err, model.ErrNotFound):
		logger.Warn("resource not found", "error", err, "path", r.URL.Path)
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrDuplicateAnswer),
		errors.Is(err, model.ErrTranscriptionFailed):
		logger.Warn("bad request", "error", err, "path", r.URL.Path)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		logger.Error("request failed", "error", err, "path", r.URL.Path)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

// decodeBody parses a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(model.ErrInvalidInput, "malformed request body")
	}
	return nil
}
