// Package oauth provides bearer token validation and protected resource
// metadata services for the Todo MCP server acting as an OAuth resource server.
package oauth

import (
	"context"
	"slices"
	"time"

	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// TokenValidator validates bearer access tokens. The transport layer treats it
// as a black box that either yields claims or an error.
type TokenValidator interface {
	// ValidateToken verifies the token and returns its claims.
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
}

// TokenClaims holds the claims of a validated access token.
type TokenClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	Scopes    []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JTI       string
}

// HasScope returns true if the token has the specified scope.
func (c *TokenClaims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Scopes, scope)
}

// HasAllScopes returns true if the token has every scope. An empty list is
// trivially satisfied.
func (c *TokenClaims) HasAllScopes(scopes ...string) bool {
	for _, required := range scopes {
		if !c.HasScope(required) {
			return false
		}
	}
	return true
}

// MetadataService builds the protected resource metadata document.
type MetadataService interface {
	// GetMetadata returns the document for a request whose external base URL
	// is baseURL. In static mode baseURL does not affect the resource field.
	GetMetadata(ctx context.Context, baseURL string) (*ProtectedResourceMetadata, error)

	// MetadataURL returns {baseURL}/.well-known/oauth-protected-resource.
	MetadataURL(baseURL string) string

	// Mode reports how the resource URL is built.
	Mode() pkgoauth.ResourceMode
}

// ProtectedResourceMetadata is the discovery document served at
// /.well-known/oauth-protected-resource (RFC 9728). Field order is the wire
// order.
type ProtectedResourceMetadata struct {
	ResourceName           string   `json:"resource_name"`
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	ScopesSupported        []string `json:"scopes_supported"`
}

// JWKSClient supplies verification keys from the authorization server's
// JSON Web Key Set.
type JWKSClient interface {
	// GetKey returns the raw public key for kid.
	GetKey(ctx context.Context, keyID string) (any, error)

	// RefreshKeys re-fetches the key set.
	RefreshKeys(ctx context.Context) error
}
