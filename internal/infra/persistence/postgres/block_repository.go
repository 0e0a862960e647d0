package postgres

import (
	"context"
	"time"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// flowBlockRepository implements the repository.FlowBlockRepository interface.
type flowBlockRepository struct {
	db *gorm.DB
}

// NewFlowBlockRepository is the constructor for flowBlockRepository.
func NewFlowBlockRepository(db *gorm.DB) repository.FlowBlockRepository {
	return &flowBlockRepository{
		db: db,
	}
}

// Create persists a new active block row.
func (repo *flowBlockRepository) Create(ctx context.Context, block *entity.FlowBlock) error {
	blockM := fromFlowBlockDomain(block)

	if err := repo.db.WithContext(ctx).Create(blockM).Error; err != nil {
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required block information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create flow block")
	}

	block.ID = blockM.ID
	block.CreatedAt = blockM.CreatedAt

	return nil
}

// FindActive retrieves the newest active, non-elapsed block for the identifier and flow.
func (repo *flowBlockRepository) FindActive(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) (*entity.FlowBlock, error) {
	var blockM model.FlowBlockModel

	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ? AND user_identifier = ? AND flow = ? AND is_active = ? AND unblocked_at > ?",
			tenantID, userIdentifier, string(flow), true, time.Now().Unix()).
		Order("created_at DESC").
		First(&blockM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBlockNotFound
		}

		return nil, errors.Wrap(err, "failed to find active block")
	}

	return toFlowBlockDomain(&blockM), nil
}

// Deactivate lifts a block ahead of its natural expiry.
func (repo *flowBlockRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.FlowBlockModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to deactivate block")
	}
	if result.RowsAffected == 0 {
		return repository.ErrBlockNotFound
	}

	return nil
}

// toFlowBlockDomain converts a GORM model to a domain entity.
func toFlowBlockDomain(data *model.FlowBlockModel) *entity.FlowBlock {
	return &entity.FlowBlock{
		ID:             data.ID,
		TenantID:       data.TenantID,
		UserIdentifier: data.UserIdentifier,
		Flow:           entity.BlockFlow(data.Flow),
		Reason:         data.Reason,
		UnblockedAt:    data.UnblockedAt,
		IsActive:       data.IsActive,
		CreatedAt:      data.CreatedAt,
	}
}

// fromFlowBlockDomain converts a domain entity to a GORM model.
func fromFlowBlockDomain(data *entity.FlowBlock) *model.FlowBlockModel {
	return &model.FlowBlockModel{
		ID:             data.ID,
		TenantID:       data.TenantID,
		UserIdentifier: data.UserIdentifier,
		Flow:           string(data.Flow),
		Reason:         data.Reason,
		UnblockedAt:    data.UnblockedAt,
		IsActive:       data.IsActive,
		CreatedAt:      data.CreatedAt,
	}
}

// blockConfigRepository implements the repository.BlockConfigRepository interface.
type blockConfigRepository struct {
	db *gorm.DB
}

// NewBlockConfigRepository is the constructor for blockConfigRepository.
func NewBlockConfigRepository(db *gorm.DB) repository.BlockConfigRepository {
	return &blockConfigRepository{
		db: db,
	}
}

// Find retrieves the block configuration for a tenant.
func (repo *blockConfigRepository) Find(ctx context.Context, tenantID string) (*entity.BlockConfig, error) {
	var configM model.BlockConfigModel

	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&configM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBlockConfigNotFound
		}

		return nil, errors.Wrap(err, "failed to find block config")
	}

	return &entity.BlockConfig{
		AttemptsAllowed:       configM.AttemptsAllowed,
		AttemptsWindowSeconds: configM.AttemptsWindowSeconds,
		BlockIntervalSeconds:  configM.BlockIntervalSeconds,
	}, nil
}
