package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/astralume/astral-api/internal/auth"
	"github.com/astralume/astral-api/internal/database"
	"github.com/astralume/astral-api/internal/request"
	"go.uber.org/zap"
)

// Auth validates the bearer token, loads the account, and attaches it to the
// request context. Requests without a valid token get 401.
func Auth(tokens *auth.TokenManager, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				logger.Debug("token_verification_failed", zap.Error(err))
				respondAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := r.Context()
			user, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, database.ErrUserNotFound) {
					respondAuthError(w, http.StatusUnauthorized, "account no longer exists")
					return
				}
				logger.Error("auth_user_lookup_failed", zap.Error(err))
				respondAuthError(w, http.StatusInternalServerError, "database error")
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
