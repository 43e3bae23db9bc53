package metadata

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// ProtectedResourceMetadata represents the OAuth 2.0 Protected Resource
// Metadata as defined in RFC 9728.
type ProtectedResourceMetadata struct {
	ResourceName           string   `json:"resource_name"`
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	ScopesSupported        []string `json:"scopes_supported"`
}

// Config describes the resource being advertised.
type Config struct {
	Mode                   pkgoauth.ResourceMode
	ResourceName           string
	ResourcePath           string
	ResourceURL            string
	AuthorizationServers   []string
	ScopesSupported        []string
	BearerMethodsSupported []string
}

// Service builds Protected Resource Metadata per RFC 9728. It holds only
// configuration copied at construction and is safe for concurrent use.
type Service struct {
	mode                   pkgoauth.ResourceMode
	resourceName           string
	resourcePath           string
	resourceURL            string
	authorizationServers   []string
	scopesSupported        []string
	bearerMethodsSupported []string
}

// NewService creates a metadata service. Static mode requires an absolute
// ResourceURL; dynamic mode requires ResourcePath to start with "/".
func NewService(cfg Config) (*Service, error) {
	mode := cfg.Mode
	if mode == "" {
		mode = pkgoauth.ModeDynamic
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown resource mode %q", mode)
	}

	path := cfg.ResourcePath
	if path == "" {
		path = pkgoauth.DefaultResourcePath
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("resource path %q must start with /", path)
	}

	resourceURL := normalizeBaseURL(cfg.ResourceURL)
	if mode == pkgoauth.ModeStatic {
		u, err := url.Parse(resourceURL)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("static mode requires an absolute resource URL, got %q", cfg.ResourceURL)
		}
	}

	name := cfg.ResourceName
	if name == "" {
		name = pkgoauth.DefaultResourceName
	}

	bearerMethods := cfg.BearerMethodsSupported
	if len(bearerMethods) == 0 {
		bearerMethods = []string{pkgoauth.BearerMethodHeader}
	}

	return &Service{
		mode:                   mode,
		resourceName:           name,
		resourcePath:           path,
		resourceURL:            resourceURL,
		authorizationServers:   cloneNonNil(cfg.AuthorizationServers),
		scopesSupported:        cloneNonNil(cfg.ScopesSupported),
		bearerMethodsSupported: cloneNonNil(bearerMethods),
	}, nil
}

// GetMetadata returns the metadata document for a request whose external base
// URL is baseURL. Slices are copied so callers cannot mutate the service.
func (s *Service) GetMetadata(_ context.Context, baseURL string) (*ProtectedResourceMetadata, error) {
	return &ProtectedResourceMetadata{
		ResourceName:           s.resourceName,
		Resource:               s.Resource(baseURL),
		AuthorizationServers:   cloneNonNil(s.authorizationServers),
		BearerMethodsSupported: cloneNonNil(s.bearerMethodsSupported),
		ScopesSupported:        cloneNonNil(s.scopesSupported),
	}, nil
}

// Resource returns the protected resource URL for baseURL.
func (s *Service) Resource(baseURL string) string {
	if s.mode == pkgoauth.ModeStatic {
		return s.resourceURL
	}
	return normalizeBaseURL(baseURL) + s.resourcePath
}

// MetadataURL returns the URL the metadata document is served at for baseURL.
func (s *Service) MetadataURL(baseURL string) string {
	return normalizeBaseURL(baseURL) + pkgoauth.WellKnownProtectedResourcePath
}

// Mode reports the configured resource mode.
func (s *Service) Mode() pkgoauth.ResourceMode {
	return s.mode
}

// normalizeBaseURL drops trailing slashes so path joins never produce "//".
func normalizeBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

// cloneNonNil copies s, returning an empty slice for nil so JSON encodes [].
func cloneNonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}

// ValidateMetadata checks the document against RFC 9728 requirements.
func ValidateMetadata(metadata *ProtectedResourceMetadata) error {
	if metadata.Resource == "" {
		return fmt.Errorf("resource field is required")
	}

	if len(metadata.AuthorizationServers) == 0 {
		return fmt.Errorf("authorization_servers field must contain at least one server")
	}

	for _, server := range metadata.AuthorizationServers {
		if server == "" {
			return fmt.Errorf("authorization server URL cannot be empty")
		}
		u, err := url.Parse(server)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("authorization server URL must be absolute: %s", server)
		}
	}

	return nil
}
