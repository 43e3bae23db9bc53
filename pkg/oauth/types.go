// Package oauth provides shared OAuth 2.0 protected resource constants for the
// Todo MCP server.
package oauth

// Well-known discovery paths.
const (
	// WellKnownProtectedResourcePath is where the protected resource metadata
	// document is served (RFC 9728).
	WellKnownProtectedResourcePath = "/.well-known/oauth-protected-resource"

	// WellKnownAuthorizationServerPath is the authorization server metadata path (RFC 8414).
	WellKnownAuthorizationServerPath = "/.well-known/oauth-authorization-server"

	// WellKnownOpenIDConfigurationPath is the OpenID Connect discovery path.
	WellKnownOpenIDConfigurationPath = "/.well-known/openid-configuration"
)

// Resource defaults.
const (
	// DefaultResourceName is the display name advertised in resource metadata.
	DefaultResourceName = "Todo MCP Server"

	// DefaultResourcePath is the path of the protected MCP endpoint.
	DefaultResourcePath = "/mcp"

	// DefaultScope is the scope advertised when none is configured.
	DefaultScope = "read:email"
)

// Token type constants as defined in RFC 6750.
const (
	// BearerToken is the OAuth 2.0 Bearer token type.
	BearerToken = "Bearer"

	// BearerMethodHeader means the token is presented in the Authorization header.
	BearerMethodHeader = "header"
)

// HTTP header names.
const (
	// HeaderAuthorization is the Authorization HTTP header name.
	HeaderAuthorization = "Authorization"

	// HeaderWWWAuthenticate is the WWW-Authenticate HTTP header name.
	HeaderWWWAuthenticate = "WWW-Authenticate"

	// HeaderContentType is the Content-Type HTTP header name.
	HeaderContentType = "Content-Type"

	// HeaderCacheControl is the Cache-Control HTTP header name.
	HeaderCacheControl = "Cache-Control"

	// HeaderForwardedProto is the de-facto reverse proxy scheme header.
	HeaderForwardedProto = "X-Forwarded-Proto"

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"
)

// Content type constants.
const (
	// ContentTypeJSON is the application/json content type.
	ContentTypeJSON = "application/json"
)

// ResourceMode selects how the protected resource URL in the metadata
// document is built.
type ResourceMode string

const (
	// ModeDynamic derives the resource URL from each request's resolved base URL.
	ModeDynamic ResourceMode = "dynamic"

	// ModeStatic serves a resource URL fixed at process start.
	ModeStatic ResourceMode = "static"
)

// Valid reports whether m is a known mode.
func (m ResourceMode) Valid() bool {
	return m == ModeDynamic || m == ModeStatic
}
