package userservice

import (
	"context"
	"encoding/json"

	"aegis/internal/domain/entity"
	domainerrors "aegis/internal/domain/errors"
	"aegis/internal/domain/service"
	"aegis/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// localService implements service.UserService on the local_users table.
// Secrets are stored as bcrypt hashes.
type localService struct {
	db         *gorm.DB
	bcryptCost int
}

// NewLocalService is the constructor for localService.
func NewLocalService(db *gorm.DB, bcryptCost int) service.UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &localService{
		db:         db,
		bcryptCost: bcryptCost,
	}
}

// GetUser fetches the profile for a user identifier (ID, email or phone).
func (s *localService) GetUser(ctx context.Context, tenantID, identifier string) (*entity.UserProfile, error) {
	userM, err := s.find(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}

	return toProfile(userM), nil
}

// Authenticate verifies a knowledge-factor secret against the stored hash.
func (s *localService) Authenticate(ctx context.Context, tenantID, identifier string, factor entity.AuthMethod, secret string) (*entity.UserProfile, error) {
	userM, err := s.find(ctx, tenantID, identifier)
	if err != nil {
		return nil, err
	}

	var hash string
	switch factor {
	case entity.AuthMethodPassword:
		hash = userM.PasswordHash
	case entity.AuthMethodPin:
		hash = userM.PinHash
	default:
		return nil, domainerrors.ErrMfaFactorNotSupported.WrapMessage("local user store only verifies knowledge factors")
	}

	if hash == "" {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return nil, domainerrors.ErrInvalidCredentials
	}

	return toProfile(userM), nil
}

// UpdateUser enrolls or rotates a knowledge-factor secret.
func (s *localService) UpdateUser(ctx context.Context, tenantID, userID string, update *entity.UserUpdate) (*entity.UserProfile, error) {
	userM, err := s.find(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(update.Secret), s.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash secret")
	}

	var column string
	switch update.Factor {
	case entity.AuthMethodPassword:
		column = "password_hash"
	case entity.AuthMethodPin:
		column = "pin_hash"
	default:
		return nil, domainerrors.ErrMfaFactorNotSupported.WrapMessage("local user store only stores knowledge factors")
	}

	if err := s.db.WithContext(ctx).
		Model(&model.LocalUserModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, userM.ID).
		Update(column, string(hash)).Error; err != nil {
		return nil, domainerrors.NewDatabaseExecuteError(err, "failed to update user secret")
	}

	switch update.Factor {
	case entity.AuthMethodPassword:
		userM.PasswordHash = string(hash)
	case entity.AuthMethodPin:
		userM.PinHash = string(hash)
	}

	return toProfile(userM), nil
}

func (s *localService) find(ctx context.Context, tenantID, identifier string) (*model.LocalUserModel, error) {
	var userM model.LocalUserModel

	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND (id = ? OR email = ? OR phone = ?)",
			tenantID, identifier, identifier, identifier).
		First(&userM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrUserNotFound
		}

		return nil, errors.Wrap(err, "failed to find local user")
	}

	return &userM, nil
}

func toProfile(userM *model.LocalUserModel) *entity.UserProfile {
	return &entity.UserProfile{
		ID:          userM.ID,
		Email:       userM.Email,
		Phone:       userM.Phone,
		PasswordSet: userM.PasswordHash != "",
		PinSet:      userM.PinHash != "",
		FCMToken:    userM.FCMToken,
		Raw:         json.RawMessage(userM.Profile),
	}
}
