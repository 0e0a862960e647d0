package service

import (
	"context"

	"aegis/internal/domain/entity"
)

// TenantConfigProvider resolves per-tenant signing keys, claim mappings and
// block thresholds. Implementations cache lookups; Invalidate drops a tenant
// from the cache after an out-of-band config change.
type TenantConfigProvider interface {
	// TenantConfig returns issuer, expiries, claim paths and cookie policy.
	TenantConfig(ctx context.Context, tenantID string) (*entity.TenantConfig, error)

	// SigningKey returns the tenant's active ES256 signing key.
	SigningKey(ctx context.Context, tenantID string) (*entity.SigningKey, error)

	// BlockConfig returns brute-force thresholds, falling back to defaults
	// when the tenant has no override.
	BlockConfig(ctx context.Context, tenantID string) (*entity.BlockConfig, error)

	// Invalidate evicts cached configuration for the tenant.
	Invalidate(tenantID string)
}
