package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

// router implements transportcore.Router on a chi mux. Middleware is bound
// per route at registration time, so routes registered before a Use call are
// not affected by it.
type router struct {
	mux         chi.Router
	middlewares []transportcore.Middleware
}

// routableMethods are the methods checked when building an Allow header.
var routableMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// NewRouter creates a new HTTP router. When responder is non-nil, unmatched
// paths get its JSON 404 and unrouted methods its JSON 405.
func NewRouter(responder transportcore.ErrorResponder) transportcore.Router {
	rt := &router{
		mux:         chi.NewRouter(),
		middlewares: make([]transportcore.Middleware, 0),
	}

	if responder != nil {
		rt.NotFound(NotFoundHandler(responder))
		rt.MethodNotAllowed(MethodNotAllowedHandler(responder))
	}

	return rt
}

// NotFoundHandler answers with responder.NotFound.
func NotFoundHandler(responder transportcore.ErrorResponder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.NotFound(w, r)
	})
}

// MethodNotAllowedHandler answers with responder.MethodNotAllowed, listing
// the methods stored in the request context.
func MethodNotAllowedHandler(responder transportcore.ErrorResponder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.MethodNotAllowed(w, r, transportcore.AllowedMethodsFromContext(r.Context())...)
	})
}

// Handle registers a handler for the given pattern.
// The handler is wrapped with all currently registered middleware.
func (r *router) Handle(pattern string, handler http.Handler) {
	method, path := splitPattern(pattern)
	wrapped := r.applyMiddleware(handler)
	if method == "" {
		r.mux.Handle(path, wrapped)
		return
	}
	r.mux.Method(method, path, wrapped)
}

// HandleFunc registers a handler function for the given pattern.
func (r *router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// Use applies middleware to all subsequent route registrations.
// Middleware is applied in the order registered.
func (r *router) Use(middlewares ...transportcore.Middleware) {
	r.middlewares = append(r.middlewares, middlewares...)
}

// NotFound sets the handler for unmatched paths.
func (r *router) NotFound(handler http.Handler) {
	r.mux.NotFound(r.applyMiddleware(handler).ServeHTTP)
}

// MethodNotAllowed sets the handler for paths routed only for other methods.
// The accepted methods are stored in the request context first.
func (r *router) MethodNotAllowed(handler http.Handler) {
	wrapped := r.applyMiddleware(handler)
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.RawPath
		if path == "" {
			path = req.URL.Path
		}
		ctx := transportcore.ContextWithAllowedMethods(req.Context(), r.allowedMethods(path))
		wrapped.ServeHTTP(w, req.WithContext(ctx))
	})
}

// allowedMethods lists the methods with a route for path.
func (r *router) allowedMethods(path string) []string {
	var allowed []string
	for _, method := range routableMethods {
		if r.mux.Match(chi.NewRouteContext(), method, path) {
			allowed = append(allowed, method)
		}
	}
	return allowed
}

// ServeHTTP implements http.Handler by delegating to the chi mux.
func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// applyMiddleware wraps the handler so the first registered middleware is
// the outermost layer.
func (r *router) applyMiddleware(handler http.Handler) http.Handler {
	wrapped := handler
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}
	return wrapped
}

// splitPattern splits "GET /path" into its method and path.
func splitPattern(pattern string) (string, string) {
	pattern = strings.TrimSpace(pattern)
	if i := strings.IndexByte(pattern, ' '); i > 0 {
		return strings.ToUpper(pattern[:i]), strings.TrimSpace(pattern[i+1:])
	}
	return "", pattern
}
