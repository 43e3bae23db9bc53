// Package transportcore provides core types, interfaces, and primitives for the transport layer.
// This package exists to break import cycles between the transport package and its internal subpackages.
package transportcore

import (
	"context"
	"net/http"
	"time"
)

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Server manages the HTTP server lifecycle.
// Implementations must support graceful shutdown and provide
// access to the bound address after startup.
type Server interface {
	// Start begins serving HTTP requests on the configured address.
	// This is a blocking call that returns when the server stops
	// or encounters an error during startup.
	Start() error

	// Shutdown gracefully shuts down the server without interrupting
	// active connections.
	Shutdown(ctx context.Context) error

	// Addr returns the address the server is listening on.
	Addr() string
}

// Router handles HTTP request routing and middleware composition.
type Router interface {
	http.Handler

	// Handle registers a handler for the given pattern. A pattern may be
	// prefixed with a method, as in "GET /health", and may end in "/*" to
	// match a subtree.
	Handle(pattern string, handler http.Handler)

	// HandleFunc registers a handler function for the given pattern.
	HandleFunc(pattern string, handler http.HandlerFunc)

	// Use applies middleware to all subsequent route registrations.
	// Middleware is applied in the order registered.
	Use(middlewares ...Middleware)

	// NotFound sets the handler for requests no route matches. Like a route,
	// it is wrapped with the middleware registered so far.
	NotFound(handler http.Handler)

	// MethodNotAllowed sets the handler for requests whose path is routed
	// only for other methods. Like a route, it is wrapped with the middleware
	// registered so far. AllowedMethodsFromContext reports the methods the
	// path accepts.
	MethodNotAllowed(handler http.Handler)
}

// BaseURLResolver derives the externally visible scheme://host of a request.
type BaseURLResolver interface {
	BaseURL(r *http.Request) string
}

// AuthMiddleware provides OAuth token validation middleware.
type AuthMiddleware interface {
	// Authenticate validates the Bearer token and adds claims to context.
	// Any failure ends the request with a 401 challenge.
	Authenticate() Middleware

	// RequireScopes checks that the token has all required scopes.
	// This middleware must be used after Authenticate() in the chain.
	RequireScopes(scopes ...string) Middleware
}

// ErrorResponder writes JSON error responses. The OAuth responses reference
// the protected resource metadata URL of the request's own base URL.
type ErrorResponder interface {
	// Unauthorized sends the 401 bearer challenge.
	Unauthorized(w http.ResponseWriter, r *http.Request, err error)

	// Forbidden sends a 403 insufficient_scope response per RFC 6750 Section 3.1.
	Forbidden(w http.ResponseWriter, r *http.Request, requiredScopes []string, err error)

	InternalError(w http.ResponseWriter, r *http.Request, err error)
	BadRequest(w http.ResponseWriter, r *http.Request, err error)

	// MethodNotAllowed sends 405 with an Allow header listing allowed.
	MethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string)

	NotFound(w http.ResponseWriter, r *http.Request)
}

// MetricsRecorder receives transport events. Implementations must be safe
// for concurrent use.
type MetricsRecorder interface {
	ObserveRequest(method, route string, status int, duration time.Duration)
	IncChallenge(reason string)
	IncMetadataRequest(mode string)
}

// NopMetrics discards all events.
type NopMetrics struct{}

func (NopMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (NopMetrics) IncChallenge(string)                               {}
func (NopMetrics) IncMetadataRequest(string)                         {}
