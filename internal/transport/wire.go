package transport

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jamesprial/todo-mcp-auth/internal/config"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/internal/baseurl"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/internal/handlers"
	transporthttp "github.com/jamesprial/todo-mcp-auth/internal/transport/internal/http"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/internal/middleware"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// HealthPath and MetricsPath are the fixed operational endpoints. /health is
// public; /metrics needs a bearer token unless metrics.public is set.
const (
	HealthPath  = "/health"
	MetricsPath = "/metrics"
)

// NewServer creates a configured HTTP server.
// The server is configured with timeouts from the config and uses the provided router.
func NewServer(cfg *config.Config, router Router) Server {
	return transporthttp.NewServer(cfg, router)
}

// NewRouter creates a new chi-backed router. Unmatched paths get a JSON 404
// and unrouted methods a JSON 405.
func NewRouter(responder ErrorResponder) Router {
	return transporthttp.NewRouter(responder)
}

// NewBaseURLResolver creates the resolver that derives each request's
// external scheme://host.
func NewBaseURLResolver(cfg *config.Config, logger *slog.Logger) BaseURLResolver {
	return &baseurl.Resolver{
		ForwardedProtoHeader: cfg.ForwardedProtoHeader,
		ServerName:           cfg.ServerName,
		ServerPort:           cfg.Port(),
		Logger:               logger,
	}
}

// NewErrorResponder creates the responder that renders bearer challenges
// pointing at metadata.MetadataURL of each request's base URL.
func NewErrorResponder(
	cfg *config.Config,
	resolver BaseURLResolver,
	metadata oauth.MetadataService,
	metrics MetricsRecorder,
	logger *slog.Logger,
) ErrorResponder {
	return transporthttp.NewErrorResponder(transporthttp.ResponderConfig{
		Resolver:         resolver,
		MetadataURL:      metadata.MetadataURL,
		StrictErrorCodes: cfg.StrictErrorCodes,
		Metrics:          metrics,
		Logger:           logger,
	})
}

// NewAuthMiddleware creates OAuth authentication middleware.
func NewAuthMiddleware(validator oauth.TokenValidator, responder ErrorResponder) AuthMiddleware {
	return middleware.NewAuthMiddleware(validator, responder)
}

// NewMetadataHandler creates the OAuth protected resource metadata handler.
// It serves metadata at /.well-known/oauth-protected-resource per RFC 9728.
func NewMetadataHandler(
	service oauth.MetadataService,
	resolver BaseURLResolver,
	responder ErrorResponder,
	metrics MetricsRecorder,
	logger *slog.Logger,
) http.Handler {
	return handlers.NewMetadataHandler(service, resolver, responder, metrics, logger)
}

// NewHealthHandler creates the health check handler.
func NewHealthHandler(responder ErrorResponder) http.Handler {
	return handlers.NewHealthHandler(responder)
}

// NewLoggingMiddleware creates request logging middleware.
// If logger is nil, it uses the default slog logger.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return middleware.NewLoggingMiddleware(logger)
}

// NewRecoveryMiddleware creates panic recovery middleware.
// If logger is nil, it uses the default slog logger.
func NewRecoveryMiddleware(responder ErrorResponder, logger *slog.Logger) Middleware {
	return middleware.NewRecoveryMiddleware(responder, logger)
}

// NewRequestIDMiddleware creates middleware assigning X-Request-ID.
func NewRequestIDMiddleware() Middleware {
	return middleware.NewRequestIDMiddleware()
}

// NewMetricsMiddleware creates middleware reporting each request to recorder.
func NewMetricsMiddleware(recorder MetricsRecorder) Middleware {
	return middleware.NewMetricsMiddleware(recorder)
}

// Config holds the collaborators needed for the transport layer.
type Config struct {
	// ServerConfig is the server configuration.
	ServerConfig *config.Config

	// OAuthValidator validates access tokens.
	OAuthValidator oauth.TokenValidator

	// MetadataService provides protected resource metadata.
	MetadataService oauth.MetadataService

	// MCPHandler serves the protected MCP endpoint.
	MCPHandler http.Handler

	// Metrics receives transport events. Nil discards them.
	Metrics MetricsRecorder

	// MetricsHandler is mounted at /metrics when metrics are enabled. It sits
	// behind bearer authentication unless ServerConfig.MetricsPublic is set.
	MetricsHandler http.Handler

	// Logger is used by every component. Nil uses slog.Default().
	Logger *slog.Logger
}

// NewTransportServices wires the resolver, responder, middleware chain and
// route table, and returns the server and its router.
func NewTransportServices(cfg *Config) (Server, Router, error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.ServerConfig == nil {
		return nil, nil, fmt.Errorf("server config cannot be nil")
	}
	if cfg.OAuthValidator == nil {
		return nil, nil, fmt.Errorf("oauth validator cannot be nil")
	}
	if cfg.MetadataService == nil {
		return nil, nil, fmt.Errorf("metadata service cannot be nil")
	}
	if cfg.MCPHandler == nil {
		return nil, nil, fmt.Errorf("mcp handler cannot be nil")
	}

	sc := cfg.ServerConfig
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var metrics MetricsRecorder = NopMetrics{}
	if cfg.Metrics != nil {
		metrics = cfg.Metrics
	}

	resolver := NewBaseURLResolver(sc, logger)
	responder := NewErrorResponder(sc, resolver, cfg.MetadataService, metrics, logger)
	auth := NewAuthMiddleware(cfg.OAuthValidator, responder)

	router := NewRouter(responder)
	router.Use(
		NewRecoveryMiddleware(responder, logger),
		NewRequestIDMiddleware(),
		NewLoggingMiddleware(logger),
		NewMetricsMiddleware(metrics),
	)

	// Requests outside the route table are authenticated before they get a
	// 404 or 405.
	router.NotFound(auth.Authenticate()(transporthttp.NotFoundHandler(responder)))
	router.MethodNotAllowed(auth.Authenticate()(transporthttp.MethodNotAllowedHandler(responder)))

	// Public endpoints
	metadataHandler := NewMetadataHandler(cfg.MetadataService, resolver, responder, metrics, logger)
	router.Handle(pkgoauth.WellKnownProtectedResourcePath, metadataHandler)
	router.Handle(pkgoauth.WellKnownProtectedResourcePath+"/*", metadataHandler)
	router.Handle(HealthPath, NewHealthHandler(responder))

	metricsServed := sc.MetricsEnabled && cfg.MetricsHandler != nil
	if metricsServed {
		metricsHandler := cfg.MetricsHandler
		if !sc.MetricsPublic {
			metricsHandler = auth.Authenticate()(metricsHandler)
		}
		router.Handle(http.MethodGet+" "+MetricsPath, metricsHandler)
	}

	// Protected endpoints
	protected := cfg.MCPHandler
	if len(sc.RequiredScopes) > 0 {
		protected = auth.RequireScopes(sc.RequiredScopes...)(protected)
	}
	protected = auth.Authenticate()(protected)
	resourcePath := sc.ResourcePath
	if resourcePath == "" {
		resourcePath = pkgoauth.DefaultResourcePath
	}
	router.Handle(resourcePath, protected)

	logger.Info("routes registered",
		"metadata", pkgoauth.WellKnownProtectedResourcePath,
		"resource", resourcePath,
		"metrics", metricsServed,
		"metrics_public", metricsServed && sc.MetricsPublic,
		"required_scopes", sc.RequiredScopes,
	)

	return NewServer(sc, router), router, nil
}
