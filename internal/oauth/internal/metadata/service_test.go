package metadata

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgoauth "github.com/jamesprial/todo-mcp-auth/pkg/oauth"
)

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc, err := NewService(cfg)
	require.NoError(t, err)
	return svc
}

func TestService_GetMetadata_Dynamic(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, Config{
		AuthorizationServers: []string{"http://localhost:9000"},
		ScopesSupported:      []string{"read:email"},
	})

	tests := []struct {
		name         string
		baseURL      string
		wantResource string
	}{
		{name: "localhost with port", baseURL: "http://localhost:8080", wantResource: "http://localhost:8080/mcp"},
		{name: "proxied https", baseURL: "https://api.example.com", wantResource: "https://api.example.com/mcp"},
		{name: "trailing slash", baseURL: "https://api.example.com/", wantResource: "https://api.example.com/mcp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			md, err := svc.GetMetadata(context.Background(), tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantResource, md.Resource)
			assert.True(t, strings.HasPrefix(md.Resource, strings.TrimRight(tt.baseURL, "/")))
			assert.Equal(t, pkgoauth.DefaultResourceName, md.ResourceName)
			assert.Equal(t, []string{"http://localhost:9000"}, md.AuthorizationServers)
			assert.Equal(t, []string{"header"}, md.BearerMethodsSupported)
			assert.Equal(t, []string{"read:email"}, md.ScopesSupported)
		})
	}
}

func TestService_GetMetadata_Static(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, Config{
		Mode:                 pkgoauth.ModeStatic,
		ResourceURL:          "https://todo.example.com/mcp/",
		AuthorizationServers: []string{"https://auth.example.com"},
	})

	for _, base := range []string{"http://localhost:8080", "https://preview-42.example.net"} {
		md, err := svc.GetMetadata(context.Background(), base)
		require.NoError(t, err)
		assert.Equal(t, "https://todo.example.com/mcp", md.Resource)
	}
	assert.Equal(t, pkgoauth.ModeStatic, svc.Mode())
}

func TestService_WireFormat(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, Config{
		AuthorizationServers: []string{"http://localhost:9000"},
		ScopesSupported:      []string{"read:email"},
	})
	md, err := svc.GetMetadata(context.Background(), "http://localhost:8080")
	require.NoError(t, err)

	data, err := json.Marshal(md)
	require.NoError(t, err)
	assert.Equal(t,
		`{"resource_name":"Todo MCP Server","resource":"http://localhost:8080/mcp","authorization_servers":["http://localhost:9000"],"bearer_methods_supported":["header"],"scopes_supported":["read:email"]}`,
		string(data))
}

func TestService_EmptyListsEncodeAsArrays(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, Config{})
	md, err := svc.GetMetadata(context.Background(), "http://localhost")
	require.NoError(t, err)

	data, err := json.Marshal(md)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"authorization_servers":[]`)
	assert.Contains(t, string(data), `"scopes_supported":[]`)
}

func TestService_DocumentIsolation(t *testing.T) {
	t.Parallel()

	scopes := []string{"read:email"}
	svc := newTestService(t, Config{ScopesSupported: scopes, AuthorizationServers: []string{"http://localhost:9000"}})
	scopes[0] = "mutated"

	md, err := svc.GetMetadata(context.Background(), "http://localhost")
	require.NoError(t, err)
	md.AuthorizationServers[0] = "mutated"

	again, err := svc.GetMetadata(context.Background(), "http://localhost")
	require.NoError(t, err)
	assert.Equal(t, []string{"read:email"}, again.ScopesSupported)
	assert.Equal(t, []string{"http://localhost:9000"}, again.AuthorizationServers)
}

func TestService_MetadataURL(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, Config{})
	assert.Equal(t, "https://api.example.com/.well-known/oauth-protected-resource", svc.MetadataURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/.well-known/oauth-protected-resource", svc.MetadataURL("https://api.example.com/"))
}

func TestNewService_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "unknown mode", cfg: Config{Mode: "sometimes"}},
		{name: "relative resource path", cfg: Config{ResourcePath: "mcp"}},
		{name: "static without url", cfg: Config{Mode: pkgoauth.ModeStatic}},
		{name: "static with relative url", cfg: Config{Mode: pkgoauth.ModeStatic, ResourceURL: "/mcp"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewService(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestValidateMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		md      *ProtectedResourceMetadata
		wantErr string
	}{
		{
			name: "valid",
			md:   &ProtectedResourceMetadata{Resource: "http://localhost:8080/mcp", AuthorizationServers: []string{"http://localhost:9000"}},
		},
		{
			name:    "missing resource",
			md:      &ProtectedResourceMetadata{AuthorizationServers: []string{"http://localhost:9000"}},
			wantErr: "resource field is required",
		},
		{
			name:    "no authorization servers",
			md:      &ProtectedResourceMetadata{Resource: "http://localhost:8080/mcp"},
			wantErr: "at least one server",
		},
		{
			name:    "relative authorization server",
			md:      &ProtectedResourceMetadata{Resource: "http://localhost:8080/mcp", AuthorizationServers: []string{"auth"}},
			wantErr: "must be absolute",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateMetadata(tt.md)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
