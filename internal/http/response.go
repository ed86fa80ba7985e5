package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"commissions/internal/core"
	"commissions/internal/xlsx"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps known error types to client status codes and keeps
// everything else a 500 with a generic body.
func writeServiceError(w http.ResponseWriter, err error) {
	var missing *xlsx.MissingColumnsError
	switch {
	case errors.As(err, &missing):
		writeError(w, http.StatusUnprocessableEntity, missing.Error())
	case errors.Is(err, core.ErrEmptyProductID),
		errors.Is(err, core.ErrEmptyPayeeID),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCap),
		errors.Is(err, core.ErrInvalidTerm),
		errors.Is(err, core.ErrUnknownDimension):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
