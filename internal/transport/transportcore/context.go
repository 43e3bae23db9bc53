package transportcore

import (
	"context"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsContextKey is the context key for OAuth token claims.
	ClaimsContextKey contextKey = "oauth_claims"

	// RequestIDContextKey is the context key for the request correlation id.
	RequestIDContextKey contextKey = "request_id"

	// AllowedMethodsContextKey is the context key for the methods a path
	// accepts, set before a MethodNotAllowed handler runs.
	AllowedMethodsContextKey contextKey = "allowed_methods"
)

// ClaimsFromContext extracts OAuth claims from the request context.
// Returns nil and false if the claims are not present in the context.
func ClaimsFromContext(ctx context.Context) (*oauth.TokenClaims, bool) {
	if ctx == nil {
		return nil, false
	}
	claims, ok := ctx.Value(ClaimsContextKey).(*oauth.TokenClaims)
	return claims, ok
}

// ContextWithClaims adds OAuth claims to the request context.
func ContextWithClaims(ctx context.Context, claims *oauth.TokenClaims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ClaimsContextKey, claims)
}

// RequestIDFromContext returns the request id, or "" when none was assigned.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// ContextWithRequestID stores the request id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, RequestIDContextKey, id)
}

// AllowedMethodsFromContext returns the methods stored by
// ContextWithAllowedMethods.
func AllowedMethodsFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	methods, _ := ctx.Value(AllowedMethodsContextKey).([]string)
	return methods
}

// ContextWithAllowedMethods stores the methods a path accepts.
func ContextWithAllowedMethods(ctx context.Context, methods []string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, AllowedMethodsContextKey, methods)
}
