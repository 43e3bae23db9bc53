package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
	"github.com/jamesprial/todo-mcp-auth/internal/transport/transportcore"
)

var testClaims = &oauth.TokenClaims{
	Subject:   "user-42",
	Issuer:    "https://auth.example.com",
	Audience:  []string{"todo"},
	Scopes:    []string{"read:email"},
	ExpiresAt: time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
}

func TestWhoAmI(t *testing.T) {
	t.Parallel()

	ctx := transportcore.ContextWithClaims(context.Background(), testClaims)
	result, err := WhoAmI(ctx, mcpgo.CallToolRequest{})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := mcpgo.AsTextContent(result.Content[0])
	require.True(t, ok)

	var got Identity
	require.NoError(t, json.Unmarshal([]byte(text.Text), &got))
	assert.Equal(t, "user-42", got.Subject)
	assert.Equal(t, "https://auth.example.com", got.Issuer)
	assert.Equal(t, []string{"read:email"}, got.Scopes)
	assert.True(t, testClaims.ExpiresAt.Equal(got.ExpiresAt))
}

func TestWhoAmI_NoClaims(t *testing.T) {
	t.Parallel()

	result, err := WhoAmI(context.Background(), mcpgo.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestWhoAmI_NilScopesEncodeAsArray(t *testing.T) {
	t.Parallel()

	ctx := transportcore.ContextWithClaims(context.Background(), &oauth.TokenClaims{Subject: "svc"})
	result, err := WhoAmI(ctx, mcpgo.CallToolRequest{})
	require.NoError(t, err)

	text, ok := mcpgo.AsTextContent(result.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, `"scopes":[]`)
}

// rpc posts one JSON-RPC message to h with claims in the request context.
func rpc(t *testing.T, h http.Handler, body string) map[string]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	req = req.WithContext(transportcore.ContextWithClaims(req.Context(), testClaims))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandler_InitializeAndCallWhoAmI(t *testing.T) {
	t.Parallel()

	h := NewHandler(Config{Name: "Todo MCP Server", Version: "test"})

	initResp := rpc(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	result, ok := initResp["result"].(map[string]any)
	require.True(t, ok, "initialize result: %v", initResp)
	serverInfo, ok := result["serverInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Todo MCP Server", serverInfo["name"])

	call := rpc(t, h, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"whoami","arguments":{}}}`)
	result, ok = call["result"].(map[string]any)
	require.True(t, ok, "tools/call result: %v", call)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.Len(t, content, 1)
	first, ok := content[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, first["text"], `"subject":"user-42"`)
}
