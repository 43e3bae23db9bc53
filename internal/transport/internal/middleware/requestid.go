package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

const maxRequestIDLength = 128

// NewRequestIDMiddleware assigns every request a correlation id. A
// well-formed inbound X-Request-ID is kept; otherwise a UUID is generated.
// The id is echoed in the response header.
func NewRequestIDMiddleware() transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(pkgoauth.HeaderRequestID)
			if !validRequestID(id) {
				id = uuid.NewString()
			}

			w.Header().Set(pkgoauth.HeaderRequestID, id)
			ctx := transportcore.ContextWithRequestID(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validRequestID accepts short printable ASCII ids.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
