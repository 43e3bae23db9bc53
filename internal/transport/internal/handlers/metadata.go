// Package handlers provides HTTP handlers for the transport layer.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// MetadataCacheControl is sent with every metadata document.
const MetadataCacheControl = "public, max-age=3600"

// metadataHandler serves OAuth 2.0 Protected Resource Metadata per RFC 9728.
type metadataHandler struct {
	service   oauth.MetadataService
	resolver  transportcore.BaseURLResolver
	responder transportcore.ErrorResponder
	metrics   transportcore.MetricsRecorder
	logger    *slog.Logger
}

// NewMetadataHandler creates a handler for the /.well-known/oauth-protected-resource
// endpoint. The document is built for the base URL of each request.
func NewMetadataHandler(
	service oauth.MetadataService,
	resolver transportcore.BaseURLResolver,
	responder transportcore.ErrorResponder,
	metrics transportcore.MetricsRecorder,
	logger *slog.Logger,
) http.Handler {
	if service == nil {
		panic("service cannot be nil")
	}
	if resolver == nil {
		panic("resolver cannot be nil")
	}
	if responder == nil {
		panic("responder cannot be nil")
	}
	if metrics == nil {
		metrics = transportcore.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &metadataHandler{
		service:   service,
		resolver:  resolver,
		responder: responder,
		metrics:   metrics,
		logger:    logger,
	}
}

// ServeHTTP handles GET requests for protected resource metadata.
func (h *metadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.responder.MethodNotAllowed(w, r, http.MethodGet)
		return
	}

	baseURL := h.resolver.BaseURL(r)
	metadata, err := h.service.GetMetadata(r.Context(), baseURL)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build metadata", "error", err, "base_url", baseURL)
		h.responder.InternalError(w, r, err)
		return
	}

	h.metrics.IncMetadataRequest(string(h.service.Mode()))

	w.Header().Set(pkgoauth.HeaderContentType, pkgoauth.ContentTypeJSON)
	w.Header().Set(pkgoauth.HeaderCacheControl, MetadataCacheControl)
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadata); err != nil {
		// Headers are already written.
		h.logger.ErrorContext(r.Context(), "failed to encode metadata", "error", err)
	}
}
