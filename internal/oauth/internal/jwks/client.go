// Package jwks supplies token verification keys from an authorization
// server's JSON Web Key Set. Fetching, caching and background refresh are
// handled by jwx's jwk.Cache.
package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth/oautherr"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// ErrNoSource indicates neither a JWKS URL nor an authorization server was configured.
var ErrNoSource = errors.New("jwks: no jwks url or authorization server configured")

// serverMetadata is the subset of RFC 8414 / OIDC discovery needed here.
type serverMetadata struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// Config configures a Client.
type Config struct {
	// JWKSURL is used as-is when set.
	JWKSURL string

	// AuthorizationServers are probed in order for a jwks_uri when JWKSURL is empty.
	AuthorizationServers []string

	// HTTPClient is used for discovery and key set fetches.
	HTTPClient *http.Client
}

// Client resolves the key set URL lazily on first use and looks keys up by kid.
type Client struct {
	cache      *jwk.Cache
	httpClient *http.Client
	configured string
	servers    []string

	mu       sync.Mutex
	jwksURL  string
	resolved bool
}

// NewClient creates a JWKS client. The cache's refresh goroutines stop when
// ctx is cancelled.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.JWKSURL == "" && len(cfg.AuthorizationServers) == 0 {
		return nil, ErrNoSource
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	cache, err := jwk.NewCache(ctx, httprc.NewClient(httprc.WithHTTPClient(httpClient)))
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
	}

	return &Client{
		cache:      cache,
		httpClient: httpClient,
		configured: cfg.JWKSURL,
		servers:    cfg.AuthorizationServers,
	}, nil
}

// GetKey returns the raw public key for keyID. An unknown kid triggers one
// refresh to pick up rotated keys.
func (c *Client) GetKey(ctx context.Context, keyID string) (any, error) {
	if keyID == "" {
		return nil, oautherr.NewKeyNotFoundError("GetKey", keyID)
	}

	jwksURL, err := c.ensureRegistered(ctx)
	if err != nil {
		return nil, err
	}

	set, err := c.cache.Lookup(ctx, jwksURL)
	if err != nil {
		return nil, oautherr.NewJWKSFetchError("GetKey", jwksURL, err)
	}

	key, ok := set.LookupKeyID(keyID)
	if !ok {
		set, err = c.cache.Refresh(ctx, jwksURL)
		if err != nil {
			return nil, oautherr.NewJWKSFetchError("GetKey", jwksURL, err)
		}
		if key, ok = set.LookupKeyID(keyID); !ok {
			return nil, oautherr.NewKeyNotFoundError("GetKey", keyID)
		}
	}

	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to export key %q: %w", keyID, err)
	}
	return raw, nil
}

// RefreshKeys forces a re-fetch of the key set.
func (c *Client) RefreshKeys(ctx context.Context) error {
	jwksURL, err := c.ensureRegistered(ctx)
	if err != nil {
		return err
	}
	if _, err := c.cache.Refresh(ctx, jwksURL); err != nil {
		return oautherr.NewJWKSFetchError("RefreshKeys", jwksURL, err)
	}
	return nil
}

// URL returns the resolved key set URL, or "" before first use.
func (c *Client) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jwksURL
}

// ensureRegistered resolves the key set URL and registers it with the cache.
// Failures are not remembered so a later request can retry.
func (c *Client) ensureRegistered(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resolved {
		return c.jwksURL, nil
	}

	jwksURL := c.configured
	if jwksURL == "" {
		discovered, err := c.discover(ctx)
		if err != nil {
			return "", err
		}
		jwksURL = discovered
	}

	regCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.cache.Register(regCtx, jwksURL); err != nil {
		return "", oautherr.NewJWKSFetchError("ensureRegistered", jwksURL, err)
	}

	c.jwksURL = jwksURL
	c.resolved = true
	return jwksURL, nil
}

// discover finds jwks_uri from the first authorization server that answers,
// trying RFC 8414 metadata before OpenID Connect discovery.
func (c *Client) discover(ctx context.Context) (string, error) {
	var lastErr error
	for _, server := range c.servers {
		base := strings.TrimRight(server, "/")
		for _, path := range []string{
			pkgoauth.WellKnownAuthorizationServerPath,
			pkgoauth.WellKnownOpenIDConfigurationPath,
		} {
			md, err := c.fetchMetadata(ctx, base+path)
			if err != nil {
				lastErr = oautherr.NewDiscoveryError("discover", server, err)
				continue
			}
			if md.JWKSURI == "" {
				lastErr = oautherr.NewDiscoveryError("discover", server, errors.New("metadata missing jwks_uri"))
				continue
			}
			return md.JWKSURI, nil
		}
	}
	if lastErr == nil {
		lastErr = ErrNoSource
	}
	return "", lastErr
}

func (c *Client) fetchMetadata(ctx context.Context, metadataURL string) (*serverMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", pkgoauth.ContentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", metadataURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var md serverMetadata
	if err := json.Unmarshal(body, &md); err != nil {
		return nil, fmt.Errorf("decode %s: %w", metadataURL, err)
	}
	return &md, nil
}
