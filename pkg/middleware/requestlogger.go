package middleware

import (
	"log/slog"
	"net/http"

	"github.com/siapee/siapee/pkg/logger"
)

// RequestLogger stores a request-scoped logger carrying correlation_id,
// principal_id, trace_id and span_id in the context, for retrieval with
// logger.FromContext. Mount it after RequestLogging and Tracing, and again
// inside authenticated route groups so the principal is picked up.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := UserIDFromContext(ctx); id != "" && logger.PrincipalIDFromContext(ctx) == "" {
				ctx = logger.WithPrincipalID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
