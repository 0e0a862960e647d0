package postgres

import (
	"context"
	"strings"
	"time"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/repository"
	"aegis/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// sessionRepository implements the repository.SessionRepository interface.
type sessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository is the constructor for sessionRepository.
func NewSessionRepository(db *gorm.DB) repository.SessionRepository {
	return &sessionRepository{
		db: db,
	}
}

// Create persists a new refresh token, representing a user session.
func (repo *sessionRepository) Create(ctx context.Context, token *entity.RefreshToken) error {
	tokenM := fromSessionDomain(token)

	if err := repo.db.WithContext(ctx).Create(tokenM).Error; err != nil {
		// Convert PostgreSQL errors to domain errors
		if isUniqueConstraintViolation(err) {
			return domainerrors.ErrInternalError.WrapMessage("refresh token collision")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.ErrValidationFailed.WrapMessage("missing required session information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create refresh token")
	}

	// Update the entity with generated values
	token.ID = tokenM.ID
	token.CreatedAt = tokenM.CreatedAt

	return nil
}

// FindByToken retrieves an active session by its opaque token value.
// Expired rows surface as ErrSessionExpired so callers can distinguish
// revocation from natural expiry.
func (repo *sessionRepository) FindByToken(ctx context.Context, tenantID, clientID, token string) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel

	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND token = ? AND is_active = ?", tenantID, clientID, token, true).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by token")
	}

	session := toSessionDomain(&tokenM)
	if session.Expired(time.Now()) {
		return nil, repository.ErrSessionExpired
	}

	return session, nil
}

// FindByID retrieves a session row by its unique ID, active or not.
func (repo *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error) {
	var tokenM model.RefreshTokenModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&tokenM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSessionNotFound
		}

		return nil, errors.Wrap(err, "failed to find session by ID")
	}

	return toSessionDomain(&tokenM), nil
}

// FindActiveByUser retrieves all active, non-expired sessions for a user.
func (repo *sessionRepository) FindActiveByUser(ctx context.Context, tenantID, clientID, userID string) ([]*entity.RefreshToken, error) {
	var tokenModels []*model.RefreshTokenModel

	if err := repo.db.WithContext(ctx).
		Where("tenant_id = ? AND client_id = ? AND user_id = ? AND is_active = ? AND expiry > ?",
			tenantID, clientID, userID, true, time.Now().Unix()).
		Order("created_at DESC").
		Find(&tokenModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active sessions by user")
	}

	sessions := make([]*entity.RefreshToken, 0, len(tokenModels))
	for _, tokenM := range tokenModels {
		sessions = append(sessions, toSessionDomain(tokenM))
	}

	return sessions, nil
}

// Update persists merged scope and auth-method columns for a session.
func (repo *sessionRepository) Update(ctx context.Context, token *entity.RefreshToken) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("id = ? AND is_active = ?", token.ID, true).
		Updates(map[string]any{
			"scope":        strings.Join(token.Scope, ","),
			"auth_methods": entity.JoinAuthMethods(token.AuthMethods),
		})

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// Deactivate marks a session revoked.
func (repo *sessionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to deactivate session")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// DeactivateByUser revokes every active session of a user.
func (repo *sessionRepository) DeactivateByUser(ctx context.Context, tenantID, clientID, userID string) error {
	if err := repo.db.WithContext(ctx).
		Model(&model.RefreshTokenModel{}).
		Where("tenant_id = ? AND client_id = ? AND user_id = ? AND is_active = ?", tenantID, clientID, userID, true).
		Update("is_active", false).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to deactivate sessions by user")
	}

	return nil
}

// toSessionDomain converts a GORM model to a domain entity.
func toSessionDomain(data *model.RefreshTokenModel) *entity.RefreshToken {
	var scope []string
	if data.Scope != "" {
		scope = strings.Split(data.Scope, ",")
	}

	return &entity.RefreshToken{
		ID:          data.ID,
		TenantID:    data.TenantID,
		ClientID:    data.ClientID,
		UserID:      data.UserID,
		Token:       data.Token,
		Expiry:      data.Expiry,
		Scope:       scope,
		AuthMethods: entity.ParseAuthMethods(data.AuthMethods),
		IsActive:    data.IsActive,
		Device: entity.DeviceMetadata{
			DeviceID:   data.DeviceID,
			DeviceName: data.DeviceName,
			IP:         data.IP,
			Source:     data.Source,
			Location:   data.Location,
		},
		CreatedAt: data.CreatedAt,
	}
}

// fromSessionDomain converts a domain entity to a GORM model.
func fromSessionDomain(data *entity.RefreshToken) *model.RefreshTokenModel {
	return &model.RefreshTokenModel{
		ID:          data.ID,
		TenantID:    data.TenantID,
		ClientID:    data.ClientID,
		UserID:      data.UserID,
		Token:       data.Token,
		Expiry:      data.Expiry,
		Scope:       strings.Join(data.Scope, ","),
		AuthMethods: entity.JoinAuthMethods(data.AuthMethods),
		IsActive:    data.IsActive,
		DeviceID:    data.Device.DeviceID,
		DeviceName:  data.Device.DeviceName,
		IP:          data.Device.IP,
		Source:      data.Device.Source,
		Location:    data.Device.Location,
		CreatedAt:   data.CreatedAt,
	}
}
