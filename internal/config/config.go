// Package config provides configuration management for the Todo MCP resource
// server. Values come from built-in defaults, an optional YAML file, and
// environment variables, in increasing order of precedence. A key such as
// "oauth.authorization_servers" is overridden by OAUTH_AUTHORIZATION_SERVERS.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// Configuration keys.
const (
	KeyServerAddr                 = "server.addr"
	KeyServerName                 = "server.name"
	KeyServerReadTimeout          = "server.read_timeout"
	KeyServerWriteTimeout         = "server.write_timeout"
	KeyServerIdleTimeout          = "server.idle_timeout"
	KeyServerShutdownTimeout      = "server.shutdown_timeout"
	KeyServerForwardedProtoHeader = "server.forwarded_proto_header"

	KeyResourceName = "resource.name"
	KeyResourcePath = "resource.path"
	KeyResourceMode = "resource.mode"
	KeyResourceURL  = "resource.url"

	KeyOAuthAuthorizationServers   = "oauth.authorization_servers"
	KeyOAuthScopesSupported        = "oauth.scopes_supported"
	KeyOAuthBearerMethodsSupported = "oauth.bearer_methods_supported"
	KeyOAuthRequiredScopes         = "oauth.required_scopes"
	KeyOAuthIssuer                 = "oauth.issuer"
	KeyOAuthAudience               = "oauth.audience"
	KeyOAuthJWKSURL                = "oauth.jwks_url"
	KeyOAuthClockSkew              = "oauth.clock_skew"

	KeyChallengeStrictErrorCodes = "challenge.strict_error_codes"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyMetricsEnabled = "metrics.enabled"
	KeyMetricsPublic  = "metrics.public"
)

var defaults = map[string]any{
	KeyServerAddr:                 ":8080",
	KeyServerName:                 "",
	KeyServerReadTimeout:          "30s",
	KeyServerWriteTimeout:         "30s",
	KeyServerIdleTimeout:          "120s",
	KeyServerShutdownTimeout:      "30s",
	KeyServerForwardedProtoHeader: pkgoauth.HeaderForwardedProto,

	KeyResourceName: pkgoauth.DefaultResourceName,
	KeyResourcePath: pkgoauth.DefaultResourcePath,
	KeyResourceMode: string(pkgoauth.ModeDynamic),
	KeyResourceURL:  "",

	KeyOAuthAuthorizationServers:   "",
	KeyOAuthScopesSupported:        pkgoauth.DefaultScope,
	KeyOAuthBearerMethodsSupported: pkgoauth.BearerMethodHeader,
	KeyOAuthRequiredScopes:         "",
	KeyOAuthIssuer:                 "",
	KeyOAuthAudience:               "",
	KeyOAuthJWKSURL:                "",
	KeyOAuthClockSkew:              "1m",

	KeyChallengeStrictErrorCodes: false,

	KeyLogLevel:  "info",
	KeyLogFormat: "json",

	KeyMetricsEnabled: true,
	KeyMetricsPublic:  false,
}

// Config holds the complete server configuration in a flat structure.
type Config struct {
	// Server settings
	// Addr is the address to bind the HTTP server (e.g., ":8080").
	Addr string

	// ServerName replaces the bound host when a request carries no Host header.
	ServerName string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ForwardedProtoHeader names the header a TLS-terminating proxy uses to
	// pass the original scheme.
	ForwardedProtoHeader string

	// Resource settings
	ResourceName string
	ResourcePath string
	ResourceMode pkgoauth.ResourceMode

	// ResourceURL is the advertised resource identifier in static mode.
	ResourceURL string

	// OAuth settings
	// AuthorizationServers is a list of trusted authorization server URLs.
	// These servers are listed in the protected resource metadata.
	AuthorizationServers   []string
	ScopesSupported        []string
	BearerMethodsSupported []string

	// RequiredScopes must all be granted for the MCP endpoint.
	RequiredScopes []string

	Issuer   string
	Audience string

	// JWKSURL skips discovery from the first authorization server.
	JWKSURL string

	// ClockSkew is the allowed clock skew for token expiration validation.
	ClockSkew time.Duration

	// StrictErrorCodes makes the challenge report invalid_token for rejected tokens.
	StrictErrorCodes bool

	LogLevel  string
	LogFormat string

	MetricsEnabled bool

	// MetricsPublic serves /metrics without a bearer token.
	MetricsPublic bool
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads configuration into a validated Config. When configFile is
// non-empty it is read as YAML before environment overrides apply.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from defaults and the environment only.
func LoadFromEnv() (*Config, error) {
	return Load(New(), "")
}

func decode(v *viper.Viper) (*Config, error) {
	d := decoder{v: v}

	cfg := &Config{
		Addr:                 v.GetString(KeyServerAddr),
		ServerName:           v.GetString(KeyServerName),
		ReadTimeout:          d.duration(KeyServerReadTimeout),
		WriteTimeout:         d.duration(KeyServerWriteTimeout),
		IdleTimeout:          d.duration(KeyServerIdleTimeout),
		ShutdownTimeout:      d.duration(KeyServerShutdownTimeout),
		ForwardedProtoHeader: strings.TrimSpace(v.GetString(KeyServerForwardedProtoHeader)),

		ResourceName: v.GetString(KeyResourceName),
		ResourcePath: v.GetString(KeyResourcePath),
		ResourceMode: pkgoauth.ResourceMode(strings.ToLower(v.GetString(KeyResourceMode))),
		ResourceURL:  v.GetString(KeyResourceURL),

		AuthorizationServers:   d.list(KeyOAuthAuthorizationServers),
		ScopesSupported:        d.list(KeyOAuthScopesSupported),
		BearerMethodsSupported: d.list(KeyOAuthBearerMethodsSupported),
		RequiredScopes:         d.list(KeyOAuthRequiredScopes),
		Issuer:                 v.GetString(KeyOAuthIssuer),
		Audience:               v.GetString(KeyOAuthAudience),
		JWKSURL:                v.GetString(KeyOAuthJWKSURL),
		ClockSkew:              d.duration(KeyOAuthClockSkew),

		StrictErrorCodes: d.bool(KeyChallengeStrictErrorCodes),

		LogLevel:  strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat: strings.ToLower(v.GetString(KeyLogFormat)),

		MetricsEnabled: d.bool(KeyMetricsEnabled),
		MetricsPublic:  d.bool(KeyMetricsPublic),
	}

	if d.err != nil {
		return nil, d.err
	}
	return cfg, nil
}

// decoder records the first conversion failure so decode reads top to bottom.
type decoder struct {
	v   *viper.Viper
	err error
}

func (d *decoder) fail(key string, err error) {
	if d.err == nil {
		d.err = fmt.Errorf("invalid %s (%s): %w", key, EnvName(key), err)
	}
}

func (d *decoder) duration(key string) time.Duration {
	dur, err := cast.ToDurationE(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return dur
}

func (d *decoder) bool(key string) bool {
	b, err := cast.ToBoolE(d.v.Get(key))
	if err != nil {
		d.fail(key, err)
	}
	return b
}

// list accepts a YAML sequence or a comma-separated string. Empty elements
// are dropped and an empty result is nil.
func (d *decoder) list(key string) []string {
	raw := d.v.Get(key)

	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		var err error
		items, err = cast.ToStringSliceE(raw)
		if err != nil {
			d.fail(key, err)
			return nil
		}
	}

	var result []string
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Port returns the numeric port of Addr, or 0 when it has none.
func (c *Config) Port() int {
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return 0
	}
	return n
}

// String returns a string representation of the configuration (for debugging).
func (c *Config) String() string {
	return fmt.Sprintf("Config{Addr: %s, ServerName: %s, ResourceMode: %s, ResourcePath: %s, ResourceURL: %s, AuthorizationServers: %v, ScopesSupported: %v, RequiredScopes: %v, Issuer: %s, Audience: %s, JWKSURL: %s, ClockSkew: %v, StrictErrorCodes: %t}",
		c.Addr, c.ServerName, c.ResourceMode, c.ResourcePath, c.ResourceURL,
		c.AuthorizationServers, c.ScopesSupported, c.RequiredScopes,
		c.Issuer, c.Audience, c.JWKSURL, c.ClockSkew, c.StrictErrorCodes)
}
