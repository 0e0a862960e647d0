package service

import (
	"context"

	"aegis/internal/domain/entity"
)

// UserService fronts the tenant's user store. Depending on deployment it is
// backed by an HTTP user service or a local credential table.
type UserService interface {
	// GetUser fetches the profile for a user identifier (ID, email or phone).
	GetUser(ctx context.Context, tenantID, identifier string) (*entity.UserProfile, error)

	// Authenticate verifies a first-factor or step-up secret for the user.
	// A wrong secret returns domainerrors.ErrInvalidCredentials.
	Authenticate(ctx context.Context, tenantID, identifier string, factor entity.AuthMethod, secret string) (*entity.UserProfile, error)

	// UpdateUser enrolls or rotates a factor secret on the user record.
	UpdateUser(ctx context.Context, tenantID, userID string, update *entity.UserUpdate) (*entity.UserProfile, error)
}

// ClientService validates OAuth-style client identifiers.
type ClientService interface {
	// ValidateClient checks the client exists, is first-party, and that every
	// requested scope is within the client's allowed set.
	ValidateClient(ctx context.Context, tenantID, clientID string, scope []string) error
}
