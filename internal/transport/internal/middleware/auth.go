// Package middleware provides HTTP middleware for the transport layer.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// authMiddleware implements transportcore.AuthMiddleware.
type authMiddleware struct {
	validator oauth.TokenValidator
	responder transportcore.ErrorResponder
}

// NewAuthMiddleware creates OAuth authentication middleware.
// It validates Bearer tokens using the provided TokenValidator and stores
// validated claims in the request context.
func NewAuthMiddleware(
	validator oauth.TokenValidator,
	responder transportcore.ErrorResponder,
) transportcore.AuthMiddleware {
	if validator == nil {
		panic("validator cannot be nil")
	}
	if responder == nil {
		panic("responder cannot be nil")
	}

	return &authMiddleware{
		validator: validator,
		responder: responder,
	}
}

// Authenticate validates the Bearer token and adds claims to context.
// Every failure, whatever its cause, is handed to the responder's
// Unauthorized challenge and the request ends there.
func (m *authMiddleware) Authenticate() transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				m.responder.Unauthorized(w, r, err)
				return
			}

			claims, err := m.validator.ValidateToken(r.Context(), token)
			if err != nil {
				m.responder.Unauthorized(w, r, err)
				return
			}

			ctx := transportcore.ContextWithClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScopes checks that the token has all required scopes.
// This middleware must be used after Authenticate() in the chain.
//
// Returns 403 Forbidden if scopes are insufficient and 401 if claims are
// missing from context.
func (m *authMiddleware) RequireScopes(scopes ...string) transportcore.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := transportcore.ClaimsFromContext(r.Context())
			if !ok || claims == nil {
				m.responder.Unauthorized(w, r, errors.New("authentication required"))
				return
			}

			if !claims.HasAllScopes(scopes...) {
				m.responder.Forbidden(w, r, scopes, transportcore.ErrInsufficientScope)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractBearerToken extracts the Bearer token from the Authorization header.
//
// Format: Authorization: Bearer <token>
func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(pkgoauth.HeaderAuthorization)
	if authHeader == "" {
		return "", transportcore.ErrMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", transportcore.ErrMalformedHeader
	}

	// Scheme is case-insensitive per RFC 6750.
	if !strings.EqualFold(parts[0], pkgoauth.BearerToken) {
		return "", transportcore.ErrMalformedHeader
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", transportcore.ErrMissingToken
	}

	return token, nil
}
