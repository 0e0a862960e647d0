package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/service"
	"aegis/internal/errors"
	"aegis/internal/infra/crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	refreshTokenLength = 32
	ssoTokenLength     = 15
)

// issuer implements the service.TokenIssuer interface with per-tenant ES256
// keys. Signing runs on the shared crypto pool.
type issuer struct {
	tenants service.TenantConfigProvider
	pool    *crypto.Pool
	now     func() time.Time
}

// NewIssuer is the constructor for issuer.
func NewIssuer(tenants service.TenantConfigProvider, pool *crypto.Pool) service.TokenIssuer {
	return &issuer{
		tenants: tenants,
		pool:    pool,
		now:     time.Now,
	}
}

// IssueAccessToken signs an access token with the tenant's active key.
func (i *issuer) IssueAccessToken(ctx context.Context, input *service.AccessTokenInput) (string, error) {
	cfg, err := i.tenants.TenantConfig(ctx, input.TenantID)
	if err != nil {
		return "", err
	}

	now := i.now()
	claims := jwt.MapClaims{
		"iss": cfg.Issuer,
		"sub": input.UserID,
		"aud": input.ClientID,
		"iat": now.Unix(),
		"exp": now.Unix() + cfg.AccessTokenExpiry,
		"jti": uuid.NewString(),
		"amr": entity.WireAuthMethods(input.AuthMethods),
	}
	if len(input.Scope) > 0 {
		claims["scope"] = strings.Join(input.Scope, " ")
	}
	if input.RefreshToken != "" {
		// rft_id ties the access token to its session without exposing the
		// refresh token value itself.
		claims["rft_id"] = hashToken(input.RefreshToken)
	}

	// Tenant-configured claims resolved from the raw profile document.
	if input.Profile != nil {
		for _, cp := range cfg.AccessTokenClaims {
			value, ok := resolveClaimPath(input.Profile.Raw, cp.Path)
			if !ok {
				continue
			}
			claims[cp.Name] = value
		}
	}

	return i.sign(ctx, input.TenantID, claims, "at+jwt")
}

// IssueIDToken signs an identity token with the tenant's active key.
func (i *issuer) IssueIDToken(ctx context.Context, input *service.IDTokenInput) (string, error) {
	cfg, err := i.tenants.TenantConfig(ctx, input.TenantID)
	if err != nil {
		return "", err
	}

	now := i.now()
	claims := jwt.MapClaims{
		"iss": cfg.Issuer,
		"sub": input.UserID,
		"aud": input.ClientID,
		"iat": now.Unix(),
		"exp": now.Unix() + cfg.IDTokenExpiry,
		"amr": entity.WireAuthMethods(input.AuthMethods),
	}

	if input.Profile != nil {
		if input.Profile.Email != "" {
			claims["email"] = input.Profile.Email
		}
		if input.Profile.Phone != "" {
			claims["phone_number"] = input.Profile.Phone
		}
		for _, path := range cfg.IDTokenClaims {
			value, ok := resolveClaimPath(input.Profile.Raw, path)
			if !ok {
				continue
			}
			claims[claimName(path)] = value
		}
	}

	return i.sign(ctx, input.TenantID, claims, "JWT")
}

// GenerateRefreshToken returns a 32-character alphanumeric opaque token.
func (i *issuer) GenerateRefreshToken() (string, error) {
	return randomAlphanumeric(refreshTokenLength)
}

// GenerateSSOToken returns a 15-character alphanumeric one-time token.
func (i *issuer) GenerateSSOToken() (string, error) {
	return randomAlphanumeric(ssoTokenLength)
}

func (i *issuer) sign(ctx context.Context, tenantID string, claims jwt.MapClaims, typ string) (string, error) {
	key, err := i.tenants.SigningKey(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if key.PrivateKey == nil {
		return "", domainerrors.ErrTenantConfigNotFound.WrapMessage("tenant has no signing key")
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	jwtToken.Header["kid"] = key.Kid
	jwtToken.Header["typ"] = typ

	var signed string
	err = i.pool.Do(ctx, func() error {
		var signErr error
		signed, signErr = jwtToken.SignedString(key.PrivateKey)

		return signErr
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}

	return signed, nil
}

// hashToken returns the hex SHA-256 of an opaque token value.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// resolveClaimPath evaluates a JSON path against the profile document.
// A path resolving to a list yields its first element; missing paths
// report ok=false and are skipped by callers.
func resolveClaimPath(raw []byte, path string) (any, bool) {
	if len(raw) == 0 || path == "" {
		return nil, false
	}

	result := gjson.GetBytes(raw, path)
	if !result.Exists() {
		return nil, false
	}
	if result.IsArray() {
		values := result.Array()
		if len(values) == 0 {
			return nil, false
		}

		return values[0].Value(), true
	}

	return result.Value(), true
}

// claimName derives the claim name from the last path segment.
func claimName(path string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[idx+1:]
	}

	return path
}
