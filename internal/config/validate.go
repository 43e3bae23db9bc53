package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validLogFormats    = []string{"json", "text"}
	validBearerMethods = []string{"header", "body", "query"}
)

// Validate checks that the configuration is valid and complete.
// It returns an error if required fields are missing or values are invalid.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateServer(cfg); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := validateResource(cfg); err != nil {
		return fmt.Errorf("invalid resource config: %w", err)
	}

	if err := validateOAuth(cfg); err != nil {
		return fmt.Errorf("invalid oauth config: %w", err)
	}

	if err := validateLog(cfg); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	return nil
}

// field formats a key together with the environment variable overriding it.
func field(key string) string {
	return fmt.Sprintf("%s (%s)", key, EnvName(key))
}

// isLocalhost returns true if the host is localhost or a loopback address.
// It handles bare hostnames and host:port combinations.
func isLocalhost(host string) bool {
	for _, name := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == name || strings.HasPrefix(host, name+":") {
			return true
		}
	}
	return false
}

// validateURL requires an absolute http(s) URL, allowing http only for loopback hosts.
func validateURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", name)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s must use http or https scheme", name)
	}
	if u.Scheme == "http" && !isLocalhost(u.Host) {
		return fmt.Errorf("%s must use https scheme for non-localhost hosts", name)
	}
	return nil
}

func validateServer(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%s is required", field(KeyServerAddr))
	}

	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("%s must be positive", field(KeyServerReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("%s must be positive", field(KeyServerWriteTimeout))
	}
	// 0 means no idle timeout.
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("%s must be non-negative", field(KeyServerIdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s must be positive", field(KeyServerShutdownTimeout))
	}

	if cfg.ForwardedProtoHeader == "" || strings.ContainsAny(cfg.ForwardedProtoHeader, " :\t") {
		return fmt.Errorf("%s must be a header name", field(KeyServerForwardedProtoHeader))
	}

	return nil
}

func validateResource(cfg *Config) error {
	if !cfg.ResourceMode.Valid() {
		return fmt.Errorf("%s must be %q or %q, got %q",
			field(KeyResourceMode), pkgoauth.ModeDynamic, pkgoauth.ModeStatic, cfg.ResourceMode)
	}

	if !strings.HasPrefix(cfg.ResourcePath, "/") {
		return fmt.Errorf("%s must start with /", field(KeyResourcePath))
	}
	if strings.HasPrefix(cfg.ResourcePath, "/.well-known/") || cfg.ResourcePath == "/health" || cfg.ResourcePath == "/metrics" {
		return fmt.Errorf("%s %q collides with a built-in route", field(KeyResourcePath), cfg.ResourcePath)
	}

	if cfg.ResourceMode == pkgoauth.ModeStatic {
		if cfg.ResourceURL == "" {
			return fmt.Errorf("%s is required in static mode", field(KeyResourceURL))
		}
		if err := validateURL(field(KeyResourceURL), cfg.ResourceURL); err != nil {
			return err
		}
	}

	return nil
}

func validateOAuth(cfg *Config) error {
	if len(cfg.AuthorizationServers) == 0 {
		return fmt.Errorf("%s is required (at least one server)", field(KeyOAuthAuthorizationServers))
	}

	for i, serverURL := range cfg.AuthorizationServers {
		if err := validateURL(fmt.Sprintf("%s[%d]", field(KeyOAuthAuthorizationServers), i), serverURL); err != nil {
			return err
		}
	}

	for _, method := range cfg.BearerMethodsSupported {
		if !contains(validBearerMethods, method) {
			return fmt.Errorf("%s contains unknown method %q", field(KeyOAuthBearerMethodsSupported), method)
		}
	}

	if cfg.JWKSURL != "" {
		if err := validateURL(field(KeyOAuthJWKSURL), cfg.JWKSURL); err != nil {
			return err
		}
	}

	if cfg.Issuer != "" {
		if u, err := url.Parse(cfg.Issuer); err != nil || !u.IsAbs() {
			return fmt.Errorf("%s must be an absolute URL", field(KeyOAuthIssuer))
		}
	}

	if cfg.ClockSkew < 0 {
		return fmt.Errorf("%s must be non-negative", field(KeyOAuthClockSkew))
	}

	return nil
}

func validateLog(cfg *Config) error {
	if !contains(validLogLevels, cfg.LogLevel) {
		return fmt.Errorf("%s must be one of %v, got %q", field(KeyLogLevel), validLogLevels, cfg.LogLevel)
	}
	if !contains(validLogFormats, cfg.LogFormat) {
		return fmt.Errorf("%s must be one of %v, got %q", field(KeyLogFormat), validLogFormats, cfg.LogFormat)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
