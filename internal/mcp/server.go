// Package mcp serves the Todo MCP endpoint using the mcp-go streamable HTTP
// transport. The endpoint sits behind the bearer gate; its tools read the
// authenticated principal from the request context.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// ToolWhoAmI is the name of the identity tool.
const ToolWhoAmI = "whoami"

// Config configures the MCP server.
type Config struct {
	// Name and Version are reported during initialize.
	Name    string
	Version string

	// Path is the endpoint path, used only for logging.
	Path string

	Logger *slog.Logger
}

// Identity is the whoami tool result.
type Identity struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer,omitempty"`
	Audience  []string  `json:"audience,omitempty"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg Config) *mcpserver.MCPServer {
	name := cfg.Name
	if name == "" {
		name = pkgoauth.DefaultResourceName
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	s.AddTool(mcpgo.NewTool(ToolWhoAmI,
		mcpgo.WithDescription("Return the subject and scopes of the access token used for this request"),
	), WhoAmI)

	return s
}

// NewHandler returns the streamable HTTP handler for the MCP endpoint. The
// handler is stateless: each POST carries a complete JSON-RPC exchange.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path := cfg.Path
	if path == "" {
		path = pkgoauth.DefaultResourcePath
	}

	logger.Debug("mcp endpoint configured", "path", path, "tools", []string{ToolWhoAmI})

	return mcpserver.NewStreamableHTTPServer(
		NewServer(cfg),
		mcpserver.WithEndpointPath(path),
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(requestContext),
	)
}

// requestContext carries the gate's claims and request id into tool handlers.
func requestContext(ctx context.Context, r *http.Request) context.Context {
	if claims, ok := transportcore.ClaimsFromContext(r.Context()); ok {
		ctx = transportcore.ContextWithClaims(ctx, claims)
	}
	if id := transportcore.RequestIDFromContext(r.Context()); id != "" {
		ctx = transportcore.ContextWithRequestID(ctx, id)
	}
	return ctx
}

// WhoAmI reports the authenticated principal.
func WhoAmI(ctx context.Context, _ mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	claims, ok := transportcore.ClaimsFromContext(ctx)
	if !ok || claims == nil {
		return mcpgo.NewToolResultError("no authenticated principal on this request"), nil
	}

	scopes := claims.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	body, err := json.Marshal(Identity{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		Scopes:    scopes,
		ExpiresAt: claims.ExpiresAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	return mcpgo.NewToolResultText(string(body)), nil
}
