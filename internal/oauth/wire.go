package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth/internal/jwks"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth/internal/metadata"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth/internal/token"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// tokenValidatorAdapter adapts token.Validator to oauth.TokenValidator interface.
type tokenValidatorAdapter struct {
	validator *token.Validator
}

func (a *tokenValidatorAdapter) ValidateToken(ctx context.Context, tokenString string) (*TokenClaims, error) {
	claims, err := a.validator.ValidateToken(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	return &TokenClaims{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		Scopes:    claims.Scopes,
		ExpiresAt: claims.ExpiresAt,
		IssuedAt:  claims.IssuedAt,
		JTI:       claims.JTI,
	}, nil
}

// metadataServiceAdapter adapts metadata.Service to oauth.MetadataService interface.
type metadataServiceAdapter struct {
	service *metadata.Service
}

func (a *metadataServiceAdapter) GetMetadata(ctx context.Context, baseURL string) (*ProtectedResourceMetadata, error) {
	meta, err := a.service.GetMetadata(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	return &ProtectedResourceMetadata{
		ResourceName:           meta.ResourceName,
		Resource:               meta.Resource,
		AuthorizationServers:   meta.AuthorizationServers,
		BearerMethodsSupported: meta.BearerMethodsSupported,
		ScopesSupported:        meta.ScopesSupported,
	}, nil
}

func (a *metadataServiceAdapter) MetadataURL(baseURL string) string {
	return a.service.MetadataURL(baseURL)
}

func (a *metadataServiceAdapter) Mode() pkgoauth.ResourceMode {
	return a.service.Mode()
}

// Config holds the configuration needed to construct OAuth services.
type Config struct {
	// Mode selects how the advertised resource URL is built.
	Mode pkgoauth.ResourceMode

	// ResourceName is the human readable resource_name.
	ResourceName string

	// ResourcePath is appended to the request base URL in dynamic mode.
	ResourcePath string

	// ResourceURL is the fixed resource identifier in static mode.
	ResourceURL string

	// AuthorizationServers is a list of trusted authorization server URLs.
	AuthorizationServers []string

	// ScopesSupported is a list of OAuth scopes this server supports.
	ScopesSupported []string

	// BearerMethodsSupported lists how tokens may be presented.
	BearerMethodsSupported []string

	// JWKSURL overrides discovery from the first authorization server.
	JWKSURL string

	// Issuer is the expected iss claim. Empty disables the check.
	Issuer string

	// Audience is the expected aud claim. Empty disables the check.
	Audience string

	// ClockSkew is the allowed clock skew for token expiration validation.
	ClockSkew time.Duration

	// HTTPClient is used for discovery and key set fetches.
	HTTPClient *http.Client
}

// NewJWKSClient creates a JWKS client. Background refresh stops when ctx is
// cancelled.
func NewJWKSClient(ctx context.Context, cfg *Config) (JWKSClient, error) {
	client, err := jwks.NewClient(ctx, jwks.Config{
		JWKSURL:              cfg.JWKSURL,
		AuthorizationServers: cfg.AuthorizationServers,
		HTTPClient:           cfg.HTTPClient,
	})
	if errors.Is(err, jwks.ErrNoSource) {
		return nil, ErrNoJWKSSource
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// NewTokenValidator creates a token validator backed by jwksClient.
func NewTokenValidator(cfg *Config, jwksClient JWKSClient) TokenValidator {
	validator := token.NewValidator(jwksClient, token.Options{
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		ClockSkew: cfg.ClockSkew,
	})
	return &tokenValidatorAdapter{validator: validator}
}

// NewMetadataService creates the RFC 9728 metadata service.
func NewMetadataService(cfg *Config) (MetadataService, error) {
	return newMetadataService(cfg)
}

func newMetadataService(cfg *Config) (*metadataServiceAdapter, error) {
	if cfg.Mode != "" && !cfg.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, cfg.Mode)
	}

	service, err := metadata.NewService(metadata.Config{
		Mode:                   cfg.Mode,
		ResourceName:           cfg.ResourceName,
		ResourcePath:           cfg.ResourcePath,
		ResourceURL:            cfg.ResourceURL,
		AuthorizationServers:   cfg.AuthorizationServers,
		ScopesSupported:        cfg.ScopesSupported,
		BearerMethodsSupported: cfg.BearerMethodsSupported,
	})
	if err != nil {
		return nil, err
	}
	return &metadataServiceAdapter{service: service}, nil
}

// sampleBaseURL is the base URL the metadata document is built for when
// checking it at start-up.
const sampleBaseURL = "http://localhost"

// NewOAuthServices creates all OAuth services from the configuration.
// This is a convenience function for dependency injection. The metadata
// document is built once for a sample base URL and must pass
// metadata.ValidateMetadata.
func NewOAuthServices(ctx context.Context, cfg *Config) (TokenValidator, MetadataService, JWKSClient, error) {
	metadataService, err := newMetadataService(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	doc, err := metadataService.service.GetMetadata(ctx, sampleBaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := metadata.ValidateMetadata(doc); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrInvalidMetadata, err)
	}

	jwksClient, err := NewJWKSClient(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	return NewTokenValidator(cfg, jwksClient), metadataService, jwksClient, nil
}
