package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"finman/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Response encoding failed",
			"error", err,
			"url", r.URL.Path)
	}
}

// respondError writes a JSON error body with the given status.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorBody{Error: message})
}

// respondStorageError maps storage sentinel errors onto HTTP statuses.
// Anything unrecognized becomes a 500 with a generic body.
func respondStorageError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "record not found")
	case errors.Is(err, core.ErrDuplicate):
		respondError(w, r, http.StatusConflict, "record already exists")
	default:
		slog.ErrorContext(r.Context(), "Storage operation failed",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// respondValidationError writes a 422 with the validation message.
func respondValidationError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, http.StatusUnprocessableEntity, err.Error())
}
