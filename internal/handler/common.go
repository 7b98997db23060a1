package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dadam-app/dadam/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps business errors to their status and code; anything else is
// logged and surfaced as an opaque internal error.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, appErr)
		return
	}
	logger.Error("request failed", "error", err)
	writeJSON(w, apperr.ErrInternal.Status, apperr.ErrInternal)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.ErrInvalidRequest.WithMessage("request body must be valid JSON")
	}
	return nil
}

func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, apperr.ErrInvalidRequest.WithMessage("invalid id")
	}
	return id, nil
}
