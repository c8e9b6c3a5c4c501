package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/tradehaven/wallet-api/internal/api/respond"
)

// RecoverMiddleware converts panics into error responses and logs stack context.
func RecoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.String("request_id", TraceIDFromContext(r.Context())),
					)

					respond.Error(
						w,
						r,
						http.StatusInternalServerError,
						"internal-server-error",
						"unexpected server error",
					)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
