// Package token validates bearer access tokens issued by the configured
// authorization server. Signature and registered-claim checks are performed by
// golang-jwt; this package only selects the key and maps failures to domain
// errors.
package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	ierrors "github.com/jamesprial/todo-mcp-auth/internal/errors"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth/oautherr"
)

// JWKSClient defines the interface for fetching signing keys.
// This avoids importing the parent oauth package.
type JWKSClient interface {
	GetKey(ctx context.Context, keyID string) (any, error)
	RefreshKeys(ctx context.Context) error
}

// TokenClaims represents validated JWT claims from an access token.
type TokenClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	Scopes    []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	JTI       string
}

// AllowedAlgorithms are the asymmetric signing methods accepted.
var AllowedAlgorithms = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "PS256", "PS384", "PS512"}

// Options tune claim validation. Empty Issuer or Audience disables that check.
type Options struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// Validator validates OAuth 2.1 access tokens using JWT validation.
type Validator struct {
	jwksClient JWKSClient
	parser     *jwt.Parser
}

// NewValidator creates a new token validator.
func NewValidator(jwksClient JWKSClient, opts Options) *Validator {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods(AllowedAlgorithms),
		jwt.WithLeeway(opts.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	return &Validator{
		jwksClient: jwksClient,
		parser:     jwt.NewParser(parserOpts...),
	}
}

// ValidateToken validates an access token and returns the parsed claims.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	mapClaims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, mapClaims, v.keyFunc(ctx))
	if err != nil {
		return nil, classify(err)
	}

	return extractClaims(mapClaims)
}

func (v *Validator) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, oautherr.NewInvalidTokenError("keyFunc", oautherr.ReasonMalformed, errors.New("missing kid in token header"))
		}
		return v.jwksClient.GetKey(ctx, kid)
	}
}

// classify maps a golang-jwt parse error onto an oauth domain error.
func classify(err error) error {
	const op = "ValidateToken"

	var domainErr *ierrors.DomainError
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return oautherr.NewTokenExpiredError(op, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return oautherr.NewInvalidTokenError(op, oautherr.ReasonMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		if strings.Contains(err.Error(), "signing method") {
			return oautherr.NewInvalidTokenError(op, oautherr.ReasonUnsupportedAlg, err)
		}
		return oautherr.NewInvalidTokenError(op, oautherr.ReasonInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		if errors.As(err, &domainErr) {
			if reason, ok := domainErr.Context[oautherr.KeyReason].(string); ok {
				return oautherr.NewInvalidTokenError(op, reason, err)
			}
		}
		if strings.Contains(err.Error(), "signing method") {
			return oautherr.NewInvalidTokenError(op, oautherr.ReasonUnsupportedAlg, err)
		}
		return oautherr.NewInvalidTokenError(op, oautherr.ReasonKeyNotFound, err)
	case errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return oautherr.NewInvalidTokenError(op, oautherr.ReasonInvalidClaims, err)
	default:
		return oautherr.NewInvalidTokenError(op, oautherr.ReasonMalformed, err)
	}
}

// extractClaims extracts TokenClaims from JWT MapClaims.
func extractClaims(mapClaims jwt.MapClaims) (*TokenClaims, error) {
	claims := &TokenClaims{}

	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return nil, oautherr.NewInvalidTokenError("extractClaims", oautherr.ReasonInvalidClaims, errors.New("missing sub claim"))
	}
	claims.Subject = sub

	if iss, err := mapClaims.GetIssuer(); err == nil {
		claims.Issuer = iss
	}
	if aud, err := mapClaims.GetAudience(); err == nil {
		claims.Audience = aud
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if jti, ok := mapClaims["jti"].(string); ok {
		claims.JTI = jti
	}

	scopes, err := extractScopes(mapClaims)
	if err != nil {
		return nil, oautherr.NewInvalidTokenError("extractClaims", oautherr.ReasonInvalidClaims, err)
	}
	claims.Scopes = scopes

	return claims, nil
}

// extractScopes reads "scope" (space separated) or "scp" (array or string).
func extractScopes(mapClaims jwt.MapClaims) ([]string, error) {
	if raw, ok := mapClaims["scope"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("scope claim has type %T", raw)
		}
		return strings.Fields(s), nil
	}

	switch scp := mapClaims["scp"].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Fields(scp), nil
	case []any:
		scopes := make([]string, 0, len(scp))
		for _, item := range scp {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("scp claim element has type %T", item)
			}
			scopes = append(scopes, s)
		}
		return scopes, nil
	default:
		return nil, fmt.Errorf("scp claim has type %T", scp)
	}
}
