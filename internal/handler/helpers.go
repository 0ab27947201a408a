package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/bywater/internal/apperr"
)

func parseIDParam(r *http.Request) (int64, error) {
	idStr := r.PathValue("id")
	return strconv.ParseInt(idStr, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAppError maps the store error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a server fault and gets logged with full detail
// while the client sees only the fallback message.
func writeAppError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already done"})
	case errors.Is(err, apperr.ErrIntegrity):
		logger.Error("data integrity violation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal inconsistency"})
	default:
		logger.Error(fallback, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}
