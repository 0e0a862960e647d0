package repository

import (
	"context"

	"aegis/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for block persistence.
var (
	// ErrBlockNotFound is returned when no active block row exists for the flow.
	ErrBlockNotFound = errors.New("block not found")
	// ErrBlockConfigNotFound is returned when a tenant has no block config row.
	ErrBlockConfigNotFound = errors.New("block config not found")
)

// FlowBlockRepository defines persistence operations for brute-force block
// records. Block rows are the durable source of truth; the cache counter is
// advisory only.
type FlowBlockRepository interface {
	// Create persists a new active block row.
	Create(ctx context.Context, block *entity.FlowBlock) error

	// FindActive retrieves the newest active, non-elapsed block for the
	// identifier and flow, or ErrBlockNotFound.
	FindActive(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) (*entity.FlowBlock, error)

	// Deactivate lifts a block ahead of its natural expiry.
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// BlockConfigRepository reads per-tenant brute-force thresholds.
type BlockConfigRepository interface {
	// Find retrieves the block configuration for a tenant, or
	// ErrBlockConfigNotFound when the tenant has no override row.
	Find(ctx context.Context, tenantID string) (*entity.BlockConfig, error)
}
