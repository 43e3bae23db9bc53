package oauth

import (
	"errors"
)

// Sentinel errors for OAuth operations. Domain errors carrying context are
// built with the oautherr package.
var (
	// ErrInvalidToken indicates the access token is invalid, expired, or malformed.
	ErrInvalidToken = errors.New("invalid token")

	// ErrNoJWKSSource indicates neither a JWKS URL nor an authorization server
	// to discover it from was configured.
	ErrNoJWKSSource = errors.New("no jwks source configured")

	// ErrInvalidMode indicates an unknown resource metadata mode.
	ErrInvalidMode = errors.New("invalid resource metadata mode")

	// ErrInvalidMetadata indicates the configured metadata document fails
	// RFC 9728 checks.
	ErrInvalidMetadata = errors.New("invalid resource metadata")
)
