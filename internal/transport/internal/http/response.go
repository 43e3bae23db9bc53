package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	ierrors "github.com/jamesprial/todo-mcp-auth/internal/errors"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth/oautherr"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
	"github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// Challenge reasons reported to metrics and logs.
const (
	ReasonMissingToken    = "missing_token"
	ReasonMalformedHeader = "malformed_header"
	ReasonRejectedToken   = "invalid_token"
)

// errorResponse represents a JSON error response body for non-OAuth errors.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ResponderConfig configures NewErrorResponder.
type ResponderConfig struct {
	// Resolver supplies the base URL the metadata URL is built from.
	Resolver transportcore.BaseURLResolver

	// MetadataURL maps a base URL to the metadata document URL. Defaults to
	// appending /.well-known/oauth-protected-resource.
	MetadataURL func(baseURL string) string

	// StrictErrorCodes reports invalid_token for presented but rejected tokens.
	StrictErrorCodes bool

	Metrics transportcore.MetricsRecorder
	Logger  *slog.Logger
}

// errorResponder implements transportcore.ErrorResponder.
type errorResponder struct {
	resolver    transportcore.BaseURLResolver
	metadataURL func(string) string
	strict      bool
	metrics     transportcore.MetricsRecorder
	logger      *slog.Logger
}

// NewErrorResponder creates an error responder.
func NewErrorResponder(cfg ResponderConfig) transportcore.ErrorResponder {
	if cfg.Resolver == nil {
		panic("resolver cannot be nil")
	}

	metadataURL := cfg.MetadataURL
	if metadataURL == nil {
		metadataURL = func(baseURL string) string {
			return strings.TrimRight(baseURL, "/") + oauth.WellKnownProtectedResourcePath
		}
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = transportcore.NopMetrics{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &errorResponder{
		resolver:    cfg.Resolver,
		metadataURL: metadataURL,
		strict:      cfg.StrictErrorCodes,
		metrics:     metrics,
		logger:      logger,
	}
}

// Unauthorized sends the bearer challenge. The header and body are rendered
// from one OAuthError so resource_metadata is identical in both.
//
//	HTTP/1.1 401 Unauthorized
//	WWW-Authenticate: Bearer error="invalid_request", error_description="No access token was provided in this request", resource_metadata="<base>/.well-known/oauth-protected-resource"
//	Content-Type: application/json
func (e *errorResponder) Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	reason := challengeReason(err)

	code, description := ierrors.ErrorCodeInvalidRequest, ierrors.DescriptionMissingToken
	if e.strict && reason != ReasonMissingToken && reason != ReasonMalformedHeader {
		code, description = ierrors.ErrorCodeInvalidToken, ierrors.DescriptionInvalidToken
	}

	challenge := ierrors.NewOAuthError(code, description).
		WithResourceMetadata(e.metadataURL(e.resolver.BaseURL(r)))

	e.metrics.IncChallenge(reason)

	attrs := []any{
		"request_id", transportcore.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
		"error", err,
		"resource_metadata", challenge.ResourceMetadata,
	}
	e.logger.WarnContext(r.Context(), "unauthenticated request", append(attrs, ierrors.Attrs(err)...)...)

	e.writeOAuthError(w, http.StatusUnauthorized, challenge)
}

// Forbidden sends a 403 Forbidden response for insufficient scope per
// RFC 6750 Section 3.1.
func (e *errorResponder) Forbidden(w http.ResponseWriter, r *http.Request, requiredScopes []string, err error) {
	scope := strings.Join(requiredScopes, " ")

	challenge := ierrors.NewOAuthError(ierrors.ErrorCodeInsufficientScope,
		fmt.Sprintf("Required scopes: %s", scope)).
		WithScope(scope).
		WithResourceMetadata(e.metadataURL(e.resolver.BaseURL(r)))

	e.logger.WarnContext(r.Context(), "forbidden request - insufficient scope",
		"request_id", transportcore.RequestIDFromContext(r.Context()),
		"error", err,
		"required_scopes", requiredScopes,
	)

	e.writeOAuthError(w, http.StatusForbidden, challenge)
}

// InternalError sends a 500 Internal Server Error response.
func (e *errorResponder) InternalError(w http.ResponseWriter, r *http.Request, err error) {
	e.logger.ErrorContext(r.Context(), "internal server error",
		"request_id", transportcore.RequestIDFromContext(r.Context()),
		"error", err,
	)

	e.writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal_error",
		Message: "An internal server error occurred",
	})
}

// BadRequest sends a 400 Bad Request response.
func (e *errorResponder) BadRequest(w http.ResponseWriter, r *http.Request, err error) {
	e.logger.WarnContext(r.Context(), "bad request",
		"request_id", transportcore.RequestIDFromContext(r.Context()),
		"error", err,
	)

	message := "Invalid request"
	if err != nil {
		message = err.Error()
	}
	e.writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// MethodNotAllowed sends a 405 response with an Allow header.
func (e *errorResponder) MethodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	e.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error:   "method_not_allowed",
		Message: fmt.Sprintf("Method %s is not allowed", r.Method),
	})
}

// NotFound sends a 404 response.
func (e *errorResponder) NotFound(w http.ResponseWriter, r *http.Request) {
	e.writeJSON(w, http.StatusNotFound, errorResponse{
		Error:   "not_found",
		Message: fmt.Sprintf("No route for %s", r.URL.Path),
	})
}

func (e *errorResponder) writeOAuthError(w http.ResponseWriter, status int, oauthErr *ierrors.OAuthError) {
	w.Header().Set(oauth.HeaderWWWAuthenticate, oauthErr.WWWAuthenticate())
	e.writeJSON(w, status, oauthErr)
}

func (e *errorResponder) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(oauth.HeaderContentType, oauth.ContentTypeJSON)
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		e.logger.Error("failed to encode error response", "error", err)
	}
}

// challengeReason classifies an authentication failure for logs and metrics.
func challengeReason(err error) string {
	switch {
	case err == nil, errors.Is(err, transportcore.ErrMissingToken):
		return ReasonMissingToken
	case errors.Is(err, transportcore.ErrMalformedHeader):
		return ReasonMalformedHeader
	}
	if reason, ok := ierrors.Context(err, oautherr.KeyReason); ok {
		if s, ok := reason.(string); ok {
			return s
		}
	}
	return ReasonRejectedToken
}
