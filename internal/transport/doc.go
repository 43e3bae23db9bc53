// Package transport provides the HTTP layer of the Todo MCP resource server.
//
// # Architecture
//
// The package joins the oauth vertical (token validation, resource metadata)
// to HTTP. Exported factories in wire.go build the pieces from internal
// subpackages; transportcore holds the shared interfaces.
//
//	internal/transport/
//	├── transport.go              # Re-exported interfaces
//	├── errors.go                 # Transport sentinel errors
//	├── context.go                # Claims and request id helpers
//	├── wire.go                   # Factories and the route table
//	├── internal/
//	│   ├── baseurl/              # scheme://host of each request
//	│   ├── http/                 # chi router, server, error responder
//	│   ├── middleware/           # auth, request id, logging, metrics, recovery
//	│   └── handlers/             # metadata and health endpoints
//
// # Base URL
//
// Every URL the server advertises is built from the request itself. The
// scheme comes from X-Forwarded-Proto, then TLS, then http. The host comes
// from the Host header, then the bound address, then server.name, then
// localhost. Ports other than 80 and 443 are kept.
//
// # Challenge
//
// Requests to the MCP path without a usable bearer token get one fixed
// challenge:
//
//	HTTP/1.1 401 Unauthorized
//	WWW-Authenticate: Bearer error="invalid_request", error_description="No access token was provided in this request", resource_metadata="https://todo.example.com/.well-known/oauth-protected-resource"
//	Content-Type: application/json
//
//	{"error":"invalid_request","error_description":"No access token was provided in this request","resource_metadata":"https://todo.example.com/.well-known/oauth-protected-resource"}
//
// With challenge.strict_error_codes enabled, presented but rejected tokens
// get error="invalid_token" instead.
//
// # Middleware Chain
//
//  1. Recovery
//  2. Request id
//  3. Logging
//  4. Metrics
//  5. Authentication, plus scope checks on the MCP path, for everything
//     except the public endpoints
//
// # Endpoints
//
// Public:
//   - GET /.well-known/oauth-protected-resource[/...] - RFC 9728 metadata
//   - GET /health
//   - GET /metrics - when metrics.enabled and metrics.public
//
// Protected:
//   - POST|GET|DELETE /mcp - MCP streamable HTTP
//   - GET /metrics - when metrics.enabled and not metrics.public
//   - any unmatched path or method, which gets 404 or 405 only once
//     authenticated
//
// # Usage
//
//	server, _, err := transport.NewTransportServices(&transport.Config{
//		ServerConfig:    cfg,
//		OAuthValidator:  validator,
//		MetadataService: metadata,
//		MCPHandler:      mcp.NewHandler(mcp.Config{Name: cfg.ResourceName}),
//		Metrics:         recorder,
//		MetricsHandler:  recorder.Handler(),
//	})
//	if err != nil {
//		return err
//	}
//	go func() { _ = server.Start() }()
package transport
