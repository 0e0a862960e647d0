// Package tenantcfg resolves per-tenant signing keys, claim mappings and
// brute-force thresholds from static configuration and the database.
package tenantcfg

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"os"
	"sync"

	"aegis/config"
	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/domain/service"
	"aegis/internal/errors"
)

// provider implements service.TenantConfigProvider. Tenant settings and keys
// come from configuration; block thresholds come from the database with a
// config fallback. Resolved entries are cached until Invalidate.
type provider struct {
	cfg        *config.Config
	blockRepo  repository.BlockConfigRepository
	mu         sync.RWMutex
	tenants    map[string]*entity.TenantConfig
	keys       map[string]*entity.SigningKey
	blockCache map[string]*entity.BlockConfig
}

// New is the constructor for provider.
func New(cfg *config.Config, blockRepo repository.BlockConfigRepository) service.TenantConfigProvider {
	return &provider{
		cfg:        cfg,
		blockRepo:  blockRepo,
		tenants:    make(map[string]*entity.TenantConfig),
		keys:       make(map[string]*entity.SigningKey),
		blockCache: make(map[string]*entity.BlockConfig),
	}
}

// TenantConfig returns issuer, expiries, claim paths and cookie policy.
func (p *provider) TenantConfig(_ context.Context, tenantID string) (*entity.TenantConfig, error) {
	p.mu.RLock()
	cached, ok := p.tenants[tenantID]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	raw := p.findTenant(tenantID)
	if raw == nil {
		return nil, domainerrors.ErrTenantConfigNotFound
	}

	resolved := toTenantConfig(raw)

	p.mu.Lock()
	p.tenants[tenantID] = resolved
	p.mu.Unlock()

	return resolved, nil
}

// SigningKey returns the tenant's active ES256 signing key.
func (p *provider) SigningKey(_ context.Context, tenantID string) (*entity.SigningKey, error) {
	p.mu.RLock()
	cached, ok := p.keys[tenantID]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	raw := p.findTenant(tenantID)
	if raw == nil {
		return nil, domainerrors.ErrTenantConfigNotFound
	}

	key, err := loadSigningKey(raw)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.keys[tenantID] = key
	p.mu.Unlock()

	return key, nil
}

// BlockConfig returns brute-force thresholds for the tenant. Lookup order:
// tenant override row, service-wide config, built-in defaults.
func (p *provider) BlockConfig(ctx context.Context, tenantID string) (*entity.BlockConfig, error) {
	p.mu.RLock()
	cached, ok := p.blockCache[tenantID]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	resolved, err := p.blockRepo.Find(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, repository.ErrBlockConfigNotFound) {
			return nil, err
		}
		resolved = p.fallbackBlockConfig()
	}

	p.mu.Lock()
	p.blockCache[tenantID] = resolved
	p.mu.Unlock()

	return resolved, nil
}

// Invalidate evicts cached configuration for the tenant.
func (p *provider) Invalidate(tenantID string) {
	p.mu.Lock()
	delete(p.tenants, tenantID)
	delete(p.keys, tenantID)
	delete(p.blockCache, tenantID)
	p.mu.Unlock()
}

func (p *provider) findTenant(tenantID string) *config.TenantConfig {
	for i := range p.cfg.Tenants {
		if p.cfg.Tenants[i].TenantID == tenantID {
			return &p.cfg.Tenants[i]
		}
	}

	return nil
}

func (p *provider) fallbackBlockConfig() *entity.BlockConfig {
	if p.cfg.Block != nil && p.cfg.Block.AttemptsAllowed > 0 {
		return &entity.BlockConfig{
			AttemptsAllowed:       p.cfg.Block.AttemptsAllowed,
			AttemptsWindowSeconds: int64(p.cfg.Block.AttemptsWindow.Seconds()),
			BlockIntervalSeconds:  int64(p.cfg.Block.BlockInterval.Seconds()),
		}
	}

	return entity.DefaultBlockConfig()
}

func toTenantConfig(raw *config.TenantConfig) *entity.TenantConfig {
	accessClaims := make([]entity.ClaimPath, 0, len(raw.AccessTokenClaims))
	for _, cp := range raw.AccessTokenClaims {
		accessClaims = append(accessClaims, entity.ClaimPath{Name: cp.Name, Path: cp.Path})
	}

	idClaims := make([]string, 0, len(raw.IDTokenClaims))
	for _, cp := range raw.IDTokenClaims {
		idClaims = append(idClaims, cp.Path)
	}

	resolved := &entity.TenantConfig{
		TenantID:           raw.TenantID,
		Issuer:             raw.Issuer,
		AccessTokenExpiry:  int64(raw.AccessTokenExpiry.Seconds()),
		IDTokenExpiry:      int64(raw.IDTokenExpiry.Seconds()),
		RefreshTokenExpiry: int64(raw.RefreshTokenExpiry.Seconds()),
		AccessTokenClaims:  accessClaims,
		IDTokenClaims:      idClaims,
	}

	if raw.Cookie != nil {
		resolved.Cookie = entity.CookiePolicy{
			Domain:           raw.Cookie.Domain,
			Path:             raw.Cookie.Path,
			Secure:           raw.Cookie.Secure,
			SameSite:         raw.Cookie.SameSite,
			AccessTokenName:  raw.Cookie.AccessTokenName,
			RefreshTokenName: raw.Cookie.RefreshTokenName,
		}
	}

	return resolved
}

func loadSigningKey(raw *config.TenantConfig) (*entity.SigningKey, error) {
	pemData := []byte(raw.SigningKeyPEM)
	if len(pemData) == 0 {
		if raw.SigningKeyPath == "" {
			return nil, domainerrors.ErrTenantConfigNotFound.WrapMessage("tenant has no signing key configured")
		}

		fileData, err := os.ReadFile(raw.SigningKeyPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read signing key for tenant %s", raw.TenantID)
		}
		pemData = fileData
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse signing key for tenant %s", raw.TenantID)
	}

	return &entity.SigningKey{Kid: raw.Kid, PrivateKey: key}, nil
}

// parsePrivateKey accepts SEC1 and PKCS#8 encodings and requires P-256.
func parsePrivateKey(pemData []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return validateCurve(key)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrap(err, "not a valid EC private key")
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("key is not an EC private key")
	}

	return validateCurve(key)
}

func validateCurve(key *ecdsa.PrivateKey) (*ecdsa.PrivateKey, error) {
	if key.Curve != elliptic.P256() {
		return nil, errors.New("signing key curve must be P-256")
	}

	return key, nil
}
