package errors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthError_WWWAuthenticate(t *testing.T) {
	t.Parallel()

	const metadataURL = "http://localhost:8080/.well-known/oauth-protected-resource"

	tests := []struct {
		name string
		err  *OAuthError
		want string
	}{
		{
			name: "missing token challenge",
			err:  NewOAuthError(ErrorCodeInvalidRequest, DescriptionMissingToken).WithResourceMetadata(metadataURL),
			want: `Bearer error="invalid_request", error_description="No access token was provided in this request", resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`,
		},
		{
			name: "insufficient scope",
			err:  NewOAuthError(ErrorCodeInsufficientScope, "").WithScope("read:email write:todo").WithResourceMetadata(metadataURL),
			want: `Bearer error="insufficient_scope", scope="read:email write:todo", resource_metadata="http://localhost:8080/.well-known/oauth-protected-resource"`,
		},
		{
			name: "realm first",
			err:  &OAuthError{Realm: "todo", ErrorCode: ErrorCodeInvalidToken},
			want: `Bearer realm="todo", error="invalid_token"`,
		},
		{
			name: "empty",
			err:  &OAuthError{},
			want: "Bearer",
		},
		{
			name: "quotes escaped",
			err:  NewOAuthError(ErrorCodeInvalidRequest, `bad "value"`),
			want: `Bearer error="invalid_request", error_description="bad \"value\""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.WWWAuthenticate())
		})
	}
}

func TestOAuthError_JSONBody(t *testing.T) {
	t.Parallel()

	err := NewOAuthError(ErrorCodeInvalidRequest, DescriptionMissingToken).
		WithScope("read:email").
		WithResourceMetadata("https://api.example.com/.well-known/oauth-protected-resource")

	data, mErr := json.Marshal(err)
	require.NoError(t, mErr)
	assert.JSONEq(t, `{
		"error": "invalid_request",
		"error_description": "No access token was provided in this request",
		"resource_metadata": "https://api.example.com/.well-known/oauth-protected-resource"
	}`, string(data))
}

func TestOAuthError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "invalid_token", NewOAuthError(ErrorCodeInvalidToken, "").Error())
	assert.Equal(t, "invalid_request: "+DescriptionMissingToken,
		NewOAuthError(ErrorCodeInvalidRequest, DescriptionMissingToken).Error())
}
