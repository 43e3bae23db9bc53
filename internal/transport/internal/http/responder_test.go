package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/jamesprial/todo-mcp-auth/internal/errors"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth/oautherr"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/internal/baseurl"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

type recordingMetrics struct {
	mu         sync.Mutex
	challenges []string
}

func (m *recordingMetrics) ObserveRequest(string, string, int, time.Duration) {}
func (m *recordingMetrics) IncMetadataRequest(string)                         {}
func (m *recordingMetrics) IncChallenge(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges = append(m.challenges, reason)
}

func newTestResponder(strict bool, metrics transportcore.MetricsRecorder) transportcore.ErrorResponder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewErrorResponder(ResponderConfig{
		Resolver:         &baseurl.Resolver{Logger: logger},
		StrictErrorCodes: strict,
		Metrics:          metrics,
		Logger:           logger,
	})
}

var resourceMetadataParam = regexp.MustCompile(`resource_metadata="([^"]*)"`)

type challengeBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ResourceMetadata string `json:"resource_metadata"`
}

func decodeChallenge(t *testing.T, rec *httptest.ResponseRecorder) challengeBody {
	t.Helper()
	var body challengeBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestResponder_Unauthorized_DefaultChallenge(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Host = "localhost:8080"
	rec := httptest.NewRecorder()

	newTestResponder(false, nil).Unauthorized(rec, r, transportcore.ErrMissingToken)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`Bearer error="invalid_request", error_description="No access token was provided in this request", resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`,
		rec.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t,
		`{"error":"invalid_request","error_description":"No access token was provided in this request","resource_metadata":"http://localhost:8080/.well-known/oauth-protected-resource"}`,
		rec.Body.String())
}

func TestResponder_Unauthorized_SameChallengeForEveryCause(t *testing.T) {
	t.Parallel()

	causes := map[string]error{
		"missing":   transportcore.ErrMissingToken,
		"malformed": transportcore.ErrMalformedHeader,
		"expired":   oautherr.NewTokenExpiredError("ValidateToken", errors.New("exp")),
		"signature": oautherr.NewInvalidTokenError("ValidateToken", oautherr.ReasonInvalidSignature, errors.New("sig")),
		"audience":  oautherr.NewInvalidTokenError("ValidateToken", oautherr.ReasonInvalidClaims, errors.New("aud")),
		"jwks down": oautherr.NewJWKSFetchError("GetKey", "https://auth.example.com/jwks", errors.New("refused")),
		"nil":       nil,
	}

	for name, cause := range causes {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			r.Host = "api.example.com"
			r.Header.Set("X-Forwarded-Proto", "https")
			rec := httptest.NewRecorder()

			newTestResponder(false, nil).Unauthorized(rec, r, cause)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decodeChallenge(t, rec)
			assert.Equal(t, ierrors.ErrorCodeInvalidRequest, body.Error)
			assert.Equal(t, ierrors.DescriptionMissingToken, body.ErrorDescription)
			assert.Equal(t, "https://api.example.com/.well-known/oauth-protected-resource", body.ResourceMetadata)
		})
	}
}

func TestResponder_Unauthorized_HeaderMatchesBody(t *testing.T) {
	t.Parallel()

	hosts := []struct {
		host  string
		proto string
	}{
		{host: "localhost:8080"},
		{host: "example.com:443"},
		{host: "api.example.com", proto: "https"},
		{host: "[::1]:9000"},
		{host: "todo.example.com", proto: "https, http"},
		{host: "a&b.example.com"},
	}

	for _, h := range hosts {
		t.Run(h.host, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
			r.Host = h.host
			if h.proto != "" {
				r.Header.Set("X-Forwarded-Proto", h.proto)
			}
			rec := httptest.NewRecorder()

			newTestResponder(false, nil).Unauthorized(rec, r, nil)

			m := resourceMetadataParam.FindStringSubmatch(rec.Header().Get("WWW-Authenticate"))
			require.Len(t, m, 2)
			assert.Equal(t, m[1], decodeChallenge(t, rec).ResourceMetadata)
		})
	}
}

func TestResponder_Unauthorized_StrictErrorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode string
		wantDesc string
	}{
		{
			name:     "missing token stays invalid_request",
			err:      transportcore.ErrMissingToken,
			wantCode: ierrors.ErrorCodeInvalidRequest,
			wantDesc: ierrors.DescriptionMissingToken,
		},
		{
			name:     "malformed header stays invalid_request",
			err:      transportcore.ErrMalformedHeader,
			wantCode: ierrors.ErrorCodeInvalidRequest,
			wantDesc: ierrors.DescriptionMissingToken,
		},
		{
			name:     "expired token",
			err:      oautherr.NewTokenExpiredError("ValidateToken", errors.New("exp")),
			wantCode: ierrors.ErrorCodeInvalidToken,
			wantDesc: ierrors.DescriptionInvalidToken,
		},
		{
			name:     "bad signature",
			err:      oautherr.NewInvalidTokenError("ValidateToken", oautherr.ReasonInvalidSignature, errors.New("sig")),
			wantCode: ierrors.ErrorCodeInvalidToken,
			wantDesc: ierrors.DescriptionInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
			r.Host = "localhost:8080"
			rec := httptest.NewRecorder()

			newTestResponder(true, nil).Unauthorized(rec, r, tt.err)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeChallenge(t, rec)
			assert.Equal(t, tt.wantCode, body.Error)
			assert.Equal(t, tt.wantDesc, body.ErrorDescription)
			assert.Contains(t, rec.Header().Get("WWW-Authenticate"), `error="`+tt.wantCode+`"`)
		})
	}
}

func TestResponder_Unauthorized_RecordsReason(t *testing.T) {
	t.Parallel()

	metrics := &recordingMetrics{}
	responder := newTestResponder(false, metrics)

	for _, err := range []error{
		transportcore.ErrMissingToken,
		transportcore.ErrMalformedHeader,
		oautherr.NewTokenExpiredError("ValidateToken", errors.New("exp")),
		errors.New("opaque"),
	} {
		responder.Unauthorized(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/mcp", nil), err)
	}

	assert.Equal(t, []string{ReasonMissingToken, ReasonMalformedHeader, oautherr.ReasonExpired, ReasonRejectedToken}, metrics.challenges)
}

func TestResponder_Unauthorized_CustomMetadataURL(t *testing.T) {
	t.Parallel()

	responder := NewErrorResponder(ResponderConfig{
		Resolver:    &baseurl.Resolver{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
		MetadataURL: func(base string) string { return base + "/.well-known/oauth-protected-resource/mcp" },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Host = "localhost:8080"
	rec := httptest.NewRecorder()
	responder.Unauthorized(rec, r, nil)

	assert.Equal(t, "http://localhost:8080/.well-known/oauth-protected-resource/mcp", decodeChallenge(t, rec).ResourceMetadata)
}

func TestResponder_Forbidden(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	r.Host = "localhost:8080"
	rec := httptest.NewRecorder()

	newTestResponder(false, nil).Forbidden(rec, r, []string{"read:email", "todo:write"}, transportcore.ErrInsufficientScope)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		`Bearer error="insufficient_scope", error_description="Required scopes: read:email todo:write", scope="read:email todo:write", resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`,
		rec.Header().Get("WWW-Authenticate"))

	body := decodeChallenge(t, rec)
	assert.Equal(t, ierrors.ErrorCodeInsufficientScope, body.Error)
	assert.Equal(t, "http://localhost:8080/.well-known/oauth-protected-resource", body.ResourceMetadata)
}

func TestResponder_PlainErrors(t *testing.T) {
	t.Parallel()

	responder := newTestResponder(false, nil)

	tests := []struct {
		name       string
		call       func(w http.ResponseWriter, r *http.Request)
		wantStatus int
		wantError  string
		wantAllow  string
	}{
		{
			name:       "internal error",
			call:       func(w http.ResponseWriter, r *http.Request) { responder.InternalError(w, r, errors.New("boom")) },
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal_error",
		},
		{
			name:       "bad request",
			call:       func(w http.ResponseWriter, r *http.Request) { responder.BadRequest(w, r, errors.New("bad input")) },
			wantStatus: http.StatusBadRequest,
			wantError:  "bad_request",
		},
		{
			name:       "method not allowed",
			call:       func(w http.ResponseWriter, r *http.Request) { responder.MethodNotAllowed(w, r, http.MethodGet) },
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  "method_not_allowed",
			wantAllow:  "GET",
		},
		{
			name:       "not found",
			call:       func(w http.ResponseWriter, r *http.Request) { responder.NotFound(w, r) },
			wantStatus: http.StatusNotFound,
			wantError:  "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			tt.call(rec, httptest.NewRequest(http.MethodPost, "/x", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Empty(t, rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Allow"))

			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestNewErrorResponder_NilResolverPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewErrorResponder(ResponderConfig{}) })
}
