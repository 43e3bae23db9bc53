package errors

import (
	"fmt"
	"strings"
)

// OAuth error codes from RFC 6750 Section 3.1.
const (
	// ErrorCodeInvalidRequest is sent when the request lacks a credential.
	ErrorCodeInvalidRequest = "invalid_request"

	// ErrorCodeInvalidToken is sent when a presented token is expired or invalid.
	ErrorCodeInvalidToken = "invalid_token"

	// ErrorCodeInsufficientScope is sent when a token lacks required scopes.
	ErrorCodeInsufficientScope = "insufficient_scope"
)

// Human-readable descriptions paired with the codes above.
const (
	// DescriptionMissingToken accompanies every default unauthenticated challenge.
	DescriptionMissingToken = "No access token was provided in this request"

	// DescriptionInvalidToken is used only when strict error codes are enabled.
	DescriptionInvalidToken = "The access token is invalid or has expired"
)

// OAuthError is an RFC 6750 error. The same value renders both the
// WWW-Authenticate header and the JSON response body, so the two never drift.
type OAuthError struct {
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
	ResourceMetadata string `json:"resource_metadata,omitempty"`

	// Scope and Realm go in the header only.
	Scope string `json:"-"`
	Realm string `json:"-"`
}

// Error implements the error interface.
func (e *OAuthError) Error() string {
	if e.ErrorDescription != "" {
		return fmt.Sprintf("%s: %s", e.ErrorCode, e.ErrorDescription)
	}
	return e.ErrorCode
}

// NewOAuthError creates an OAuthError with the given code and description.
func NewOAuthError(errorCode, errorDescription string) *OAuthError {
	return &OAuthError{
		ErrorCode:        errorCode,
		ErrorDescription: errorDescription,
	}
}

// WithScope sets the scope parameter and returns e for chaining.
func (e *OAuthError) WithScope(scope string) *OAuthError {
	e.Scope = scope
	return e
}

// WithResourceMetadata sets the resource_metadata parameter and returns e for chaining.
func (e *OAuthError) WithResourceMetadata(url string) *OAuthError {
	e.ResourceMetadata = url
	return e
}

// WWWAuthenticate renders the Bearer challenge with comma-separated
// auth-params in a fixed order: realm, error, error_description, error_uri,
// scope, resource_metadata.
//
//	Bearer error="invalid_request", error_description="No access token was provided in this request", resource_metadata="https://example.com/.well-known/oauth-protected-resource"
func (e *OAuthError) WWWAuthenticate() string {
	var parts []string

	add := func(key, value string) {
		if value != "" {
			parts = append(parts, fmt.Sprintf(`%s="%s"`, key, escapeQuotes(value)))
		}
	}
	add("realm", e.Realm)
	add("error", e.ErrorCode)
	add("error_description", e.ErrorDescription)
	add("error_uri", e.ErrorURI)
	add("scope", e.Scope)
	add("resource_metadata", e.ResourceMetadata)

	if len(parts) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(parts, ", ")
}

// escapeQuotes escapes backslashes and double quotes for a quoted-string.
func escapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
