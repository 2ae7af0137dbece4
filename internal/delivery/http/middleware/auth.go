package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	h "announcements/internal/delivery/http/helpers"
	"announcements/internal/domain"
)

type contextKey string

const userIDKey contextKey = "userID"

var (
	errMissingToken  = errors.New("missing token")
	errInvalidFormat = errors.New("invalid authorization format")
)

// SetUserID returns a context with the user ID set. Used by auth middleware.
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func bearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", errInvalidFormat
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}

// RequireAuth returns a wrapper that validates the Bearer token and sets the user ID in the request context.
// If the token is missing or invalid, it responds with 401 and does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
				return
			}
			token, err := bearerToken(r)
			if err != nil {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, err.Error())
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				logger.DebugContext(r.Context(), "token rejected", "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetUserID(r.Context(), userID)))
		}
	}
}

// OptionalAuth is like RequireAuth but lets requests without an Authorization header through
// as anonymous. A header that is present but invalid is still rejected with 401.
func OptionalAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	required := RequireAuth(verifier, logger)
	return func(next http.HandlerFunc) http.HandlerFunc {
		authed := required(next)
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next(w, r)
				return
			}
			authed(w, r)
		}
	}
}

// RequireAdmin returns a wrapper that lets through only users holding the admin role.
// It must run after RequireAuth.
func RequireAdmin(roles domain.RoleRepository, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "unauthorized")
				return
			}
			list, err := roles.ListByUserID(r.Context(), userID)
			if err != nil {
				logger.ErrorContext(r.Context(), "list roles failed", "user_id", userID, "err", err)
				h.WriteJSONError(w, http.StatusInternalServerError, h.ErrCodeInternalError, "could not load roles")
				return
			}
			for _, role := range list {
				if role.Code == domain.RoleAdmin {
					next(w, r)
					return
				}
			}
			h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "admin role required")
		}
	}
}
