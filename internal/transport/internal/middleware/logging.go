package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

// NewLoggingMiddleware creates middleware that logs HTTP requests.
// If logger is nil, it uses the default slog logger.
func NewLoggingMiddleware(logger *slog.Logger) transportcore.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
				"request_id", transportcore.RequestIDFromContext(r.Context()),
			)
		})
	}
}
