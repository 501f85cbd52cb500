package middleware

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/auth"
)

type TokenValidator interface {
	Validate(raw string) (auth.Identity, error)
}

// AuthJWT requires a valid bearer token and stores the identity and the raw
// token in the request context.
func AuthJWT(v TokenValidator, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || scheme != "Bearer" || strings.TrimSpace(token) == "" {
				WriteError(w, r, http.StatusUnauthorized, "Authorization token required")
				return
			}

			id, err := v.Validate(strings.TrimSpace(token))
			if err != nil {
				logger.WithError(err).WithField("correlation_id", GetCorrelationID(r.Context())).Warn("rejected token")
				if errors.Is(err, auth.ErrTokenExpired) {
					WriteError(w, r, http.StatusUnauthorized, "Token expired")
					return
				}
				WriteError(w, r, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := auth.WithIdentity(r.Context(), id)
			ctx = auth.WithToken(ctx, strings.TrimSpace(token))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role differs from role.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.IdentityFrom(r.Context())
			if !ok {
				WriteError(w, r, http.StatusUnauthorized, "Authorization token required")
				return
			}
			if id.Role != role {
				WriteError(w, r, http.StatusForbidden, string(role)+" role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
