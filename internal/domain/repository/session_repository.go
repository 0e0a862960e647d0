// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"aegis/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for session persistence.
var (
	// ErrSessionNotFound is returned when a refresh token row is missing or inactive.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when a refresh token row has expired.
	ErrSessionExpired = errors.New("session expired")
)

// SessionRepository defines persistence operations for refresh-token sessions.
// Rows are deactivated, never deleted, to preserve the audit trail.
type SessionRepository interface {
	// Create persists a new active refresh token row.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// FindByToken retrieves an active, non-expired session by its opaque token
	// value, scoped to tenant and client.
	FindByToken(ctx context.Context, tenantID, clientID, token string) (*entity.RefreshToken, error)

	// FindByID retrieves a session row by its unique ID, active or not.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// FindActiveByUser retrieves all active, non-expired sessions for a user.
	FindActiveByUser(ctx context.Context, tenantID, clientID, userID string) ([]*entity.RefreshToken, error)

	// Update persists merged scope and auth-method columns for a session.
	// The token value itself is never rotated by step-up flows.
	Update(ctx context.Context, token *entity.RefreshToken) error

	// Deactivate marks a session revoked. One-way; there is no resurrection.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// DeactivateByUser revokes every active session of a user.
	DeactivateByUser(ctx context.Context, tenantID, clientID, userID string) error
}
