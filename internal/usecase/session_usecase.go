package usecase

import (
	"context"

	"aegis/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase manages a user's active refresh-token sessions.
type SessionUsecase interface {
	// ListSessions returns the user's active sessions with masked addresses.
	ListSessions(ctx context.Context, tenantID, clientID, userID string) ([]*entity.SessionSummary, error)

	// RevokeSession deactivates one session after an ownership check.
	RevokeSession(ctx context.Context, tenantID, clientID, userID string, sessionID uuid.UUID) error

	// RevokeAllSessions deactivates every active session of the user.
	RevokeAllSessions(ctx context.Context, tenantID, clientID, userID string) error
}
