// Package oautherr provides constructors for OAuth domain errors.
// It is separate from internal/oauth so the internal token and jwks packages
// can build errors without an import cycle.
package oautherr

import (
	"fmt"

	ierrors "github.com/jamesprial/todo-mcp-auth/internal/errors"
)

const domainOAuth = "oauth"

// Context keys recorded on OAuth domain errors.
const (
	// KeyOAuthError holds the RFC 6750 error code the failure maps to.
	KeyOAuthError = "oauth_error"

	// KeyReason holds a short machine-readable failure reason.
	KeyReason = "reason"
)

// Reasons recorded under KeyReason.
const (
	ReasonMalformed        = "malformed"
	ReasonExpired          = "token_expired"
	ReasonInvalidSignature = "invalid_signature"
	ReasonInvalidClaims    = "invalid_claims"
	ReasonKeyNotFound      = "key_not_found"
	ReasonUnsupportedAlg   = "unsupported_algorithm"
)

// NewInvalidTokenError creates an error for a token that could not be accepted.
func NewInvalidTokenError(op, reason string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuth, op, ierrors.ErrUnauthorized, err).
		WithContext(KeyOAuthError, ierrors.ErrorCodeInvalidToken).
		WithContext(KeyReason, reason)
}

// NewTokenExpiredError creates an error for an expired token.
func NewTokenExpiredError(op string, err error) *ierrors.DomainError {
	return NewInvalidTokenError(op, ReasonExpired, err)
}

// NewUnsupportedAlgorithmError creates an error for a disallowed signing algorithm.
func NewUnsupportedAlgorithmError(op, algorithm string) *ierrors.DomainError {
	return NewInvalidTokenError(op, ReasonUnsupportedAlg, fmt.Errorf("unsupported algorithm %q", algorithm)).
		WithContext("algorithm", algorithm)
}

// NewKeyNotFoundError creates an error for a kid absent from the key set.
func NewKeyNotFoundError(op, keyID string) *ierrors.DomainError {
	return NewInvalidTokenError(op, ReasonKeyNotFound, fmt.Errorf("key %q not found", keyID)).
		WithContext("key_id", keyID)
}

// NewJWKSFetchError creates an error for a failed key set fetch.
func NewJWKSFetchError(op, url string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuth, op, ierrors.ErrInternal, fmt.Errorf("jwks fetch failed: %w", err)).
		WithContext("jwks_url", url)
}

// NewDiscoveryError creates an error for failed authorization server discovery.
func NewDiscoveryError(op, serverURL string, err error) *ierrors.DomainError {
	return ierrors.New(domainOAuth, op, ierrors.ErrInternal, fmt.Errorf("discovery failed: %w", err)).
		WithContext("authorization_server", serverURL)
}
