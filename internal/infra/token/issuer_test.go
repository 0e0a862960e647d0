package token

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"testing"

	"aegis/internal/domain/entity"
	"aegis/internal/domain/service"
	"aegis/internal/infra/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTenantProvider struct {
	cfg *entity.TenantConfig
	key *entity.SigningKey
}

func (p *staticTenantProvider) TenantConfig(_ context.Context, _ string) (*entity.TenantConfig, error) {
	return p.cfg, nil
}

func (p *staticTenantProvider) SigningKey(_ context.Context, _ string) (*entity.SigningKey, error) {
	return p.key, nil
}

func (p *staticTenantProvider) BlockConfig(_ context.Context, _ string) (*entity.BlockConfig, error) {
	return entity.DefaultBlockConfig(), nil
}

func (p *staticTenantProvider) Invalidate(_ string) {}

func newTestIssuer(t *testing.T) (service.TokenIssuer, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	provider := &staticTenantProvider{
		cfg: &entity.TenantConfig{
			TenantID:          "tenant-1",
			Issuer:            "https://auth.example.com",
			AccessTokenExpiry: 900,
			IDTokenExpiry:     900,
			AccessTokenClaims: []entity.ClaimPath{
				{Name: "org_id", Path: "organization.id"},
				{Name: "roles", Path: "roles"},
				{Name: "missing", Path: "does.not.exist"},
			},
		},
		key: &entity.SigningKey{Kid: "key-1", PrivateKey: key},
	}

	return NewIssuer(provider, crypto.NewPool(2)), key
}

func parseToken(t *testing.T, signed string, key *ecdsa.PrivateKey) (jwt.MapClaims, map[string]any) {
	t.Helper()

	parsed, err := jwt.Parse(signed, func(token *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)

	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)

	return claims, parsed.Header
}

func TestIssueAccessToken_Claims(t *testing.T) {
	issuer, key := newTestIssuer(t)

	raw, err := json.Marshal(map[string]any{
		"organization": map[string]any{"id": "org-42"},
		"roles":        []string{"admin", "viewer"},
	})
	require.NoError(t, err)

	signed, err := issuer.IssueAccessToken(context.Background(), &service.AccessTokenInput{
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		UserID:       "user-1",
		Scope:        []string{"profile", "payments"},
		AuthMethods:  []entity.AuthMethod{entity.AuthMethodPassword, entity.AuthMethodEmailOTP},
		RefreshToken: "opaque-refresh-token",
		Profile:      &entity.UserProfile{ID: "user-1", Raw: raw},
	})
	require.NoError(t, err)

	claims, header := parseToken(t, signed, key)

	assert.Equal(t, "https://auth.example.com", claims["iss"])
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "client-1", claims["aud"])
	assert.Equal(t, "profile payments", claims["scope"])
	assert.Equal(t, []any{"pwd", "otp"}, claims["amr"])
	assert.NotEmpty(t, claims["jti"])

	sum := sha256.Sum256([]byte("opaque-refresh-token"))
	assert.Equal(t, hex.EncodeToString(sum[:]), claims["rft_id"])

	// Configured claim paths: nested value, first element of a list, and a
	// missing path that is skipped.
	assert.Equal(t, "org-42", claims["org_id"])
	assert.Equal(t, "admin", claims["roles"])
	_, hasMissing := claims["missing"]
	assert.False(t, hasMissing)

	assert.Equal(t, "key-1", header["kid"])
	assert.Equal(t, "at+jwt", header["typ"])
}

func TestIssueIDToken_ProfileClaims(t *testing.T) {
	issuer, key := newTestIssuer(t)

	signed, err := issuer.IssueIDToken(context.Background(), &service.IDTokenInput{
		TenantID:    "tenant-1",
		ClientID:    "client-1",
		UserID:      "user-1",
		AuthMethods: []entity.AuthMethod{entity.AuthMethodPassword},
		Profile:     &entity.UserProfile{ID: "user-1", Email: "user@example.com", Phone: "+886912345678"},
	})
	require.NoError(t, err)

	claims, header := parseToken(t, signed, key)
	assert.Equal(t, "user@example.com", claims["email"])
	assert.Equal(t, "+886912345678", claims["phone_number"])
	assert.Equal(t, []any{"pwd"}, claims["amr"])
	assert.Equal(t, "JWT", header["typ"])
}

func TestGenerateRefreshToken_Format(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	alnum := regexp.MustCompile(`^[A-Za-z0-9]+$`)
	seen := make(map[string]struct{})
	for range 50 {
		token, err := issuer.GenerateRefreshToken()
		require.NoError(t, err)
		assert.Len(t, token, 32)
		assert.Regexp(t, alnum, token)

		_, dup := seen[token]
		assert.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestGenerateSSOToken_Format(t *testing.T) {
	issuer, _ := newTestIssuer(t)

	token, err := issuer.GenerateSSOToken()
	require.NoError(t, err)
	assert.Len(t, token, 15)
	assert.Regexp(t, `^[A-Za-z0-9]+$`, token)
}
