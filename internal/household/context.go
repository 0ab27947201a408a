package household

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dukerupert/bywater/internal/store"
)

type contextKey struct{}

// WithID returns a context carrying the resolved household ID.
func WithID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// ID returns the household ID from the context, or 0 when unresolved.
func ID(ctx context.Context) int64 {
	id, _ := ctx.Value(contextKey{}).(int64)
	return id
}

// Require resolves the household from the X-Household-ID header (or the
// household_id query parameter as a fallback for websocket and browser
// requests), verifies it exists, and stores it in the request context.
func Require(households *store.HouseholdStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-Household-ID")
			if raw == "" {
				raw = r.URL.Query().Get("household_id")
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusBadRequest, "household_id required")
				return
			}

			hh, err := households.GetByID(id)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to resolve household")
				return
			}
			if hh == nil {
				writeError(w, http.StatusNotFound, "household not found")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
