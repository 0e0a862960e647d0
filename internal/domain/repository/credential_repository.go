package repository

import (
	"context"

	"aegis/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrCredentialNotFound is returned when no active credential exists for a device.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository defines persistence operations for device-bound
// public-key credentials. At most one active credential exists per
// (tenant, user, device); re-registration revokes the predecessor.
type CredentialRepository interface {
	// Create persists a new active credential row.
	Create(ctx context.Context, credential *entity.Credential) error

	// FindActiveByDevice retrieves the single active credential for a device.
	FindActiveByDevice(ctx context.Context, tenantID, clientID, userID, deviceID string) (*entity.Credential, error)

	// FindActiveByUser retrieves all active credentials for a user.
	FindActiveByUser(ctx context.Context, tenantID, clientID, userID string) ([]*entity.Credential, error)

	// RevokeActiveByDevice marks any active credential for the device revoked.
	// Returns the number of rows affected.
	RevokeActiveByDevice(ctx context.Context, tenantID, clientID, userID, deviceID string) (int64, error)
}
