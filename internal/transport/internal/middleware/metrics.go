package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

// NewMetricsMiddleware records the method, matched route pattern, status and
// latency of each request.
func NewMetricsMiddleware(recorder transportcore.MetricsRecorder) transportcore.Middleware {
	if recorder == nil {
		recorder = transportcore.NopMetrics{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			recorder.ObserveRequest(r.Method, routeLabel(r), wrapped.statusCode, time.Since(start))
		})
	}
}

// routeLabel keeps label cardinality bounded by using the route pattern
// rather than the raw path.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
