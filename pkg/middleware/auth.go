package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/pkg/httputil"
	"github.com/siapee/siapee/pkg/logger"
)

type contextKeyType string

const userIDKey contextKeyType = "user_id"

// TokenVerifier checks an access token's signature and expiry and returns the
// subject it was issued for. Services inject their own signing setup.
type TokenVerifier func(token string) (userID string, err error)

// Authenticate verifies the bearer access token on every request. It is
// stateless and never reaches the database; the verified subject is placed in
// the request context for UserIDFromContext and the logging context.
func Authenticate(verify TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, r, apperrors.MissingAuthorization(), nil)
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				httputil.WriteError(w, r, apperrors.MalformedAuthorization(), nil)
				return
			}

			userID, err := verify(token)
			if err != nil || userID == "" {
				httputil.WriteError(w, r, apperrors.InvalidToken("invalid or expired token"), nil)
				return
			}

			ctx := WithUserID(r.Context(), userID)
			ctx = logger.WithPrincipalID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}
