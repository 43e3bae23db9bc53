// Package transport provides the HTTP transport layer for the Todo MCP resource server.
package transport

import (
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

// Re-export types from transportcore.
// This allows external packages to import transport without creating cycles.

type (
	Middleware      = transportcore.Middleware
	Server          = transportcore.Server
	Router          = transportcore.Router
	BaseURLResolver = transportcore.BaseURLResolver
	AuthMiddleware  = transportcore.AuthMiddleware
	ErrorResponder  = transportcore.ErrorResponder
	MetricsRecorder = transportcore.MetricsRecorder
	NopMetrics      = transportcore.NopMetrics
)
