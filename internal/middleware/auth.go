package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dadam-app/dadam/internal/apperr"
	"github.com/dadam-app/dadam/internal/auth"
	"github.com/dadam-app/dadam/internal/store"
)

// RequireAuth validates the Bearer token, confirms the user still exists, and
// populates AuthContext for downstream handlers.
func RequireAuth(tokens *auth.TokenManager, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}

			userID, email, err := tokens.Verify(token)
			if err != nil {
				writeUnauthorized(w)
				return
			}

			user, err := users.GetByID(userID)
			if err != nil || user == nil {
				writeUnauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:     user.ID,
				Email:      email,
				FamilyCode: user.FamilyCode,
			}
			RecordUserID(r.Context(), user.ID)

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.ErrUnauthorized.Status)
	json.NewEncoder(w).Encode(apperr.ErrUnauthorized)
}
