// Package mocks provides mock implementations for testing the transport layer.
package mocks

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

// TokenValidator is a mock implementation of oauth.TokenValidator.
type TokenValidator struct {
	ValidateFunc func(ctx context.Context, token string) (*oauth.TokenClaims, error)
}

// ValidateToken calls the mock ValidateFunc.
func (m *TokenValidator) ValidateToken(ctx context.Context, token string) (*oauth.TokenClaims, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, token)
	}
	return nil, nil
}

// MetadataService is a mock implementation of oauth.MetadataService.
type MetadataService struct {
	GetMetadataFunc func(ctx context.Context, baseURL string) (*oauth.ProtectedResourceMetadata, error)
	ModeValue       pkgoauth.ResourceMode
}

// GetMetadata calls the mock GetMetadataFunc, or describes baseURL/mcp.
func (m *MetadataService) GetMetadata(ctx context.Context, baseURL string) (*oauth.ProtectedResourceMetadata, error) {
	if m.GetMetadataFunc != nil {
		return m.GetMetadataFunc(ctx, baseURL)
	}
	return &oauth.ProtectedResourceMetadata{
		ResourceName:           pkgoauth.DefaultResourceName,
		Resource:               baseURL + pkgoauth.DefaultResourcePath,
		AuthorizationServers:   []string{"https://auth.example.com"},
		BearerMethodsSupported: []string{pkgoauth.BearerMethodHeader},
		ScopesSupported:        []string{pkgoauth.DefaultScope},
	}, nil
}

// MetadataURL appends the well-known path to baseURL.
func (m *MetadataService) MetadataURL(baseURL string) string {
	return baseURL + pkgoauth.WellKnownProtectedResourcePath
}

// Mode returns ModeValue, defaulting to dynamic.
func (m *MetadataService) Mode() pkgoauth.ResourceMode {
	if m.ModeValue == "" {
		return pkgoauth.ModeDynamic
	}
	return m.ModeValue
}

// BaseURLResolver returns a fixed base URL.
type BaseURLResolver struct {
	URL string
}

// BaseURL returns URL.
func (m BaseURLResolver) BaseURL(*http.Request) string {
	return m.URL
}

// ErrorResponder records calls and writes minimal responses.
type ErrorResponder struct {
	MetadataURL string

	mu                 sync.Mutex
	UnauthorizedCalled bool
	UnauthorizedErr    error
	ForbiddenCalled    bool
	ForbiddenScopes    []string
	ForbiddenErr       error
	InternalCalled     bool
	InternalErr        error
	BadRequestCalled   bool
	BadRequestErr      error
	AllowedMethods     []string
	NotFoundCalled     bool
}

// Unauthorized records the call and writes a 401 response.
func (m *ErrorResponder) Unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	m.mu.Lock()
	m.UnauthorizedCalled = true
	m.UnauthorizedErr = err
	m.mu.Unlock()

	w.Header().Set("WWW-Authenticate", `Bearer resource_metadata="`+m.MetadataURL+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}

// Forbidden records the call and writes a 403 response.
func (m *ErrorResponder) Forbidden(w http.ResponseWriter, _ *http.Request, requiredScopes []string, err error) {
	m.mu.Lock()
	m.ForbiddenCalled = true
	m.ForbiddenScopes = requiredScopes
	m.ForbiddenErr = err
	m.mu.Unlock()

	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+strings.Join(requiredScopes, " ")+`"`)
	w.WriteHeader(http.StatusForbidden)
}

// InternalError records the call and writes a 500 response.
func (m *ErrorResponder) InternalError(w http.ResponseWriter, _ *http.Request, err error) {
	m.mu.Lock()
	m.InternalCalled = true
	m.InternalErr = err
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"internal_error"}`))
}

// BadRequest records the call and writes a 400 response.
func (m *ErrorResponder) BadRequest(w http.ResponseWriter, _ *http.Request, err error) {
	m.mu.Lock()
	m.BadRequestCalled = true
	m.BadRequestErr = err
	m.mu.Unlock()

	w.WriteHeader(http.StatusBadRequest)
}

// MethodNotAllowed records the allowed methods and writes a 405 response.
func (m *ErrorResponder) MethodNotAllowed(w http.ResponseWriter, _ *http.Request, allowed ...string) {
	m.mu.Lock()
	m.AllowedMethods = allowed
	m.mu.Unlock()

	w.Header().Set("Allow", strings.Join(allowed, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// NotFound records the call and writes a 404 response.
func (m *ErrorResponder) NotFound(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	m.NotFoundCalled = true
	m.mu.Unlock()

	w.WriteHeader(http.StatusNotFound)
}

// Reset clears all recorded state.
func (m *ErrorResponder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UnauthorizedCalled = false
	m.UnauthorizedErr = nil
	m.ForbiddenCalled = false
	m.ForbiddenScopes = nil
	m.ForbiddenErr = nil
	m.InternalCalled = false
	m.InternalErr = nil
	m.BadRequestCalled = false
	m.BadRequestErr = nil
	m.AllowedMethods = nil
	m.NotFoundCalled = false
}

// Request is one observation passed to MetricsRecorder.ObserveRequest.
type Request struct {
	Method string
	Route  string
	Status int
}

// MetricsRecorder records transport metric events.
type MetricsRecorder struct {
	mu               sync.Mutex
	Requests         []Request
	Challenges       []string
	MetadataRequests []string
}

// ObserveRequest records the request.
func (m *MetricsRecorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, Request{Method: method, Route: route, Status: status})
}

// IncChallenge records the reason.
func (m *MetricsRecorder) IncChallenge(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Challenges = append(m.Challenges, reason)
}

// IncMetadataRequest records the mode.
func (m *MetricsRecorder) IncMetadataRequest(mode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetadataRequests = append(m.MetadataRequests, mode)
}
