package postgres

import (
	"context"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// credentialRepository implements the repository.CredentialRepository interface.
type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository is the constructor for credentialRepository.
func NewCredentialRepository(db *gorm.DB) repository.CredentialRepository {
	return &credentialRepository{
		db: db,
	}
}

// Create persists a new active credential row.
func (repo *credentialRepository) Create(ctx context.Context, credential *entity.Credential) error {
	credentialM := fromCredentialDomain(credential)

	if err := repo.db.WithContext(ctx).Create(credentialM).Error; err != nil {
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required credential information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create credential")
	}

	credential.ID = credentialM.ID
	credential.CreatedAt = credentialM.CreatedAt

	return nil
}

// FindActiveByDevice retrieves the single active credential for a device.
func (repo *credentialRepository) FindActiveByDevice(ctx context.Context, tenantID, clientID, userID, deviceID string) (*entity.Credential, error) {
	var credentialM model.CredentialModel

	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND user_id = ? AND device_id = ? AND is_active = ?",
			tenantID, clientID, userID, deviceID, true).
		Order("created_at DESC").
		First(&credentialM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrCredentialNotFound
		}

		return nil, errors.Wrap(err, "failed to find credential by device")
	}

	return toCredentialDomain(&credentialM), nil
}

// FindActiveByUser retrieves all active credentials for a user.
func (repo *credentialRepository) FindActiveByUser(ctx context.Context, tenantID, clientID, userID string) ([]*entity.Credential, error) {
	var credentialModels []*model.CredentialModel

	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND user_id = ? AND is_active = ?", tenantID, clientID, userID, true).
		Order("created_at DESC").
		Find(&credentialModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find credentials by user")
	}

	credentials := make([]*entity.Credential, 0, len(credentialModels))
	for _, credentialM := range credentialModels {
		credentials = append(credentials, toCredentialDomain(credentialM))
	}

	return credentials, nil
}

// RevokeActiveByDevice marks any active credential for the device revoked.
func (repo *credentialRepository) RevokeActiveByDevice(ctx context.Context, tenantID, clientID, userID, deviceID string) (int64, error) {
	result := repo.db.WithContext(ctx).
		Model(&model.CredentialModel{}).
		Where("tenant_id = ? AND client_id = ? AND user_id = ? AND device_id = ? AND is_active = ?",
			tenantID, clientID, userID, deviceID, true).
		Updates(map[string]any{
			"is_active":  false,
			"revoked_at": gorm.Expr("NOW()"),
		})

	if result.Error != nil {
		return 0, domainerrors.NewDatabaseExecuteError(result.Error, "failed to revoke credentials")
	}

	return result.RowsAffected, nil
}

// toCredentialDomain converts a GORM model to a domain entity.
func toCredentialDomain(data *model.CredentialModel) *entity.Credential {
	return &entity.Credential{
		ID:           data.ID,
		TenantID:     data.TenantID,
		ClientID:     data.ClientID,
		UserID:       data.UserID,
		DeviceID:     data.DeviceID,
		Platform:     data.Platform,
		CredentialID: data.CredentialID,
		PublicKey:    data.PublicKey,
		BindingType:  data.BindingType,
		Alg:          data.Alg,
		SignCount:    data.SignCount,
		AAGUID:       data.AAGUID,
		IsActive:     data.IsActive,
		RevokedAt:    data.RevokedAt,
		CreatedAt:    data.CreatedAt,
	}
}

// fromCredentialDomain converts a domain entity to a GORM model.
func fromCredentialDomain(data *entity.Credential) *model.CredentialModel {
	return &model.CredentialModel{
		ID:           data.ID,
		TenantID:     data.TenantID,
		ClientID:     data.ClientID,
		UserID:       data.UserID,
		DeviceID:     data.DeviceID,
		Platform:     data.Platform,
		CredentialID: data.CredentialID,
		PublicKey:    data.PublicKey,
		BindingType:  data.BindingType,
		Alg:          data.Alg,
		SignCount:    data.SignCount,
		AAGUID:       data.AAGUID,
		IsActive:     data.IsActive,
		RevokedAt:    data.RevokedAt,
		CreatedAt:    data.CreatedAt,
	}
}
