package entity

import "crypto/ecdsa"

// ClaimPath names an additional access-token claim and the JSON path used to
// resolve it from the user profile. If the path resolves to a list, the first
// value is taken; missing paths are skipped silently.
type ClaimPath struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// CookiePolicy controls the token cookies set for a tenant.
type CookiePolicy struct {
	Domain           string `json:"domain" yaml:"domain"`
	Path             string `json:"path" yaml:"path"`
	Secure           bool   `json:"secure" yaml:"secure"`
	SameSite         string `json:"sameSite" yaml:"sameSite"`
	AccessTokenName  string `json:"accessTokenName" yaml:"accessTokenName"`
	RefreshTokenName string `json:"refreshTokenName" yaml:"refreshTokenName"`
}

// TenantConfig holds the per-tenant issuance settings consumed by the token
// and session layers. All expiries are in seconds.
type TenantConfig struct {
	TenantID           string
	Issuer             string
	AccessTokenExpiry  int64
	IDTokenExpiry      int64
	RefreshTokenExpiry int64
	AccessTokenClaims  []ClaimPath
	IDTokenClaims      []string
	Cookie             CookiePolicy
}

// SigningKey is a tenant's current asymmetric signing key.
type SigningKey struct {
	Kid        string
	PrivateKey *ecdsa.PrivateKey
}

// BlockConfig is the per-tenant brute-force policy.
type BlockConfig struct {
	AttemptsAllowed       int64
	AttemptsWindowSeconds int64
	BlockIntervalSeconds  int64
}

// DefaultBlockConfig applies when a tenant has no stored block configuration.
func DefaultBlockConfig() *BlockConfig {
	return &BlockConfig{
		AttemptsAllowed:       5,
		AttemptsWindowSeconds: 300,
		BlockIntervalSeconds:  900,
	}
}
