package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/siapee/siapee/pkg/errors"
	"github.com/siapee/siapee/pkg/httputil"
)

// RoleLookup returns the current role of a user. Implementations must wrap
// apperrors.ErrNotFound when the user no longer exists.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// RoleLookupFunc adapts a function to RoleLookup.
type RoleLookupFunc func(ctx context.Context, userID string) (string, error)

// RoleOf calls f.
func (f RoleLookupFunc) RoleOf(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Authorize decides whether userID may proceed given the accepted roles. The
// role is read through lookup on every call, so a role change applies to the
// very next request.
func Authorize(ctx context.Context, lookup RoleLookup, userID string, roles ...string) error {
	if userID == "" {
		return apperrors.Unauthenticated("authentication required")
	}

	role, err := lookup.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthenticated("user no longer exists")
		}
		return apperrors.Internal(fmt.Errorf("look up role: %w", err))
	}

	for _, allowed := range roles {
		if role == allowed {
			return nil
		}
	}
	return apperrors.Forbidden("insufficient role")
}

// RequireRole composes Authorize ahead of a handler. It must be mounted after
// Authenticate.
func RequireRole(lookup RoleLookup, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := Authorize(r.Context(), lookup, UserIDFromContext(r.Context()), roles...); err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
