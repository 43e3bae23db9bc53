package transport

import (
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

// Re-export errors from transportcore.
var (
	ErrMissingToken      = transportcore.ErrMissingToken
	ErrMalformedHeader   = transportcore.ErrMalformedHeader
	ErrInsufficientScope = transportcore.ErrInsufficientScope
	ErrMethodNotAllowed  = transportcore.ErrMethodNotAllowed
	ErrServerClosed      = transportcore.ErrServerClosed
)
