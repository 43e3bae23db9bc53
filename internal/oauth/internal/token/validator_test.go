package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ierrors "github.com/jamesprial/todo-mcp-auth/internal/errors"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth/oautherr"
)

const (
	testKID      = "test-key"
	testIssuer   = "https://auth.example.com"
	testAudience = "https://mcp.example.com/mcp"
)

type staticKeys map[string]any

func (s staticKeys) GetKey(_ context.Context, keyID string) (any, error) {
	key, ok := s[keyID]
	if !ok {
		return nil, oautherr.NewKeyNotFoundError("GetKey", keyID)
	}
	return key, nil
}

func (s staticKeys) RefreshKeys(context.Context) error { return nil }

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"sub":   "alice",
		"iss":   testIssuer,
		"aud":   testAudience,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
		"jti":   "token-1",
		"scope": "read:email todo:read",
	}
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func reasonOf(t *testing.T, err error) string {
	t.Helper()
	v, ok := ierrors.Context(err, oautherr.KeyReason)
	require.True(t, ok, "error %v carries no reason", err)
	return v.(string)
}

func TestValidator_ValidToken(t *testing.T) {
	key := generateKey(t)
	v := NewValidator(staticKeys{testKID: &key.PublicKey}, Options{
		Issuer:    testIssuer,
		Audience:  testAudience,
		ClockSkew: time.Minute,
	})

	claims, err := v.ValidateToken(context.Background(), sign(t, key, testKID, validClaims()))
	require.NoError(t, err)

	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, []string{testAudience}, claims.Audience)
	assert.Equal(t, []string{"read:email", "todo:read"}, claims.Scopes)
	assert.Equal(t, "token-1", claims.JTI)
	assert.False(t, claims.ExpiresAt.IsZero())
	assert.False(t, claims.IssuedAt.IsZero())
}

func TestValidator_ScpClaim(t *testing.T) {
	key := generateKey(t)
	v := NewValidator(staticKeys{testKID: &key.PublicKey}, Options{})

	tests := []struct {
		name string
		scp  any
		want []string
	}{
		{name: "array", scp: []any{"read:email", "write"}, want: []string{"read:email", "write"}},
		{name: "string", scp: "read:email write", want: []string{"read:email", "write"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims()
			delete(c, "scope")
			c["scp"] = tt.scp

			claims, err := v.ValidateToken(context.Background(), sign(t, key, testKID, c))
			require.NoError(t, err)
			assert.Equal(t, tt.want, claims.Scopes)
		})
	}
}

func TestValidator_Rejections(t *testing.T) {
	key := generateKey(t)
	other := generateKey(t)

	v := NewValidator(staticKeys{testKID: &key.PublicKey}, Options{
		Issuer:    testIssuer,
		Audience:  testAudience,
		ClockSkew: time.Minute,
	})

	tests := []struct {
		name   string
		token  func(t *testing.T) string
		reason string
	}{
		{
			name:   "malformed",
			token:  func(*testing.T) string { return "not-a-jwt" },
			reason: oautherr.ReasonMalformed,
		},
		{
			name: "expired beyond skew",
			token: func(t *testing.T) string {
				c := validClaims()
				c["exp"] = time.Now().Add(-10 * time.Minute).Unix()
				return sign(t, key, testKID, c)
			},
			reason: oautherr.ReasonExpired,
		},
		{
			name: "signed by another key",
			token: func(t *testing.T) string {
				return sign(t, other, testKID, validClaims())
			},
			reason: oautherr.ReasonInvalidSignature,
		},
		{
			name: "unknown kid",
			token: func(t *testing.T) string {
				return sign(t, key, "rotated-away", validClaims())
			},
			reason: oautherr.ReasonKeyNotFound,
		},
		{
			name: "missing kid",
			token: func(t *testing.T) string {
				return sign(t, key, "", validClaims())
			},
			reason: oautherr.ReasonMalformed,
		},
		{
			name: "symmetric algorithm",
			token: func(t *testing.T) string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims())
				tok.Header["kid"] = testKID
				s, err := tok.SignedString([]byte("shared-secret"))
				require.NoError(t, err)
				return s
			},
			reason: oautherr.ReasonUnsupportedAlg,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				c := validClaims()
				c["aud"] = "https://other.example.com"
				return sign(t, key, testKID, c)
			},
			reason: oautherr.ReasonInvalidClaims,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := validClaims()
				c["iss"] = "https://evil.example.com"
				return sign(t, key, testKID, c)
			},
			reason: oautherr.ReasonInvalidClaims,
		},
		{
			name: "missing exp",
			token: func(t *testing.T) string {
				c := validClaims()
				delete(c, "exp")
				return sign(t, key, testKID, c)
			},
			reason: oautherr.ReasonInvalidClaims,
		},
		{
			name: "missing sub",
			token: func(t *testing.T) string {
				c := validClaims()
				delete(c, "sub")
				return sign(t, key, testKID, c)
			},
			reason: oautherr.ReasonInvalidClaims,
		},
		{
			name: "scope of wrong type",
			token: func(t *testing.T) string {
				c := validClaims()
				c["scope"] = 42
				return sign(t, key, testKID, c)
			},
			reason: oautherr.ReasonInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.ValidateToken(context.Background(), tt.token(t))
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ierrors.ErrUnauthorized)
			assert.Equal(t, tt.reason, reasonOf(t, err))
		})
	}
}

func TestValidator_ClockSkew(t *testing.T) {
	key := generateKey(t)
	c := validClaims()
	c["exp"] = time.Now().Add(-30 * time.Second).Unix()
	token := sign(t, key, testKID, c)

	lenient := NewValidator(staticKeys{testKID: &key.PublicKey}, Options{ClockSkew: time.Minute})
	_, err := lenient.ValidateToken(context.Background(), token)
	assert.NoError(t, err)

	strict := NewValidator(staticKeys{testKID: &key.PublicKey}, Options{})
	_, err = strict.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.Equal(t, oautherr.ReasonExpired, reasonOf(t, err))
}

func TestValidator_NoIssuerOrAudienceConfigured(t *testing.T) {
	key := generateKey(t)
	v := NewValidator(staticKeys{testKID: &key.PublicKey}, Options{})

	c := validClaims()
	c["iss"] = "https://anyone.example.com"
	c["aud"] = "anything"

	claims, err := v.ValidateToken(context.Background(), sign(t, key, testKID, c))
	require.NoError(t, err)
	assert.Equal(t, "https://anyone.example.com", claims.Issuer)
}
