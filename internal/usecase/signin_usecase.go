// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"aegis/internal/domain/entity"

	"github.com/google/uuid"
)

// SigninInput carries a first-factor sign-in request.
type SigninInput struct {
	TenantID   string
	ClientID   string
	Identifier string
	Secret     string
	Factor     entity.AuthMethod
	Scope      []string
	Device     entity.DeviceMetadata
}

// SigninResult is a successful sign-in: a new session and its tokens.
type SigninResult struct {
	SessionID uuid.UUID
	UserID    string
	Tokens    *entity.TokenBundle
}

// SigninUsecase establishes new sessions from a first authentication factor.
type SigninUsecase interface {
	// Signin verifies the first factor and creates a session. Wrong secrets
	// count toward the flow's brute-force counter; an active block rejects
	// the attempt before any verification work.
	Signin(ctx context.Context, input *SigninInput) (*SigninResult, error)
}
