package usecase

import (
	"context"

	"aegis/internal/domain/entity"
)

// StepUpInput carries an MFA step-up request against an existing session.
type StepUpInput struct {
	TenantID     string
	ClientID     string
	RefreshToken string
	Factor       entity.AuthMethod
	Secret       string
	Scope        []string
}

// EnrollInput carries a factor enrollment request.
type EnrollInput struct {
	TenantID     string
	ClientID     string
	RefreshToken string
	Factor       entity.AuthMethod
	Secret       string
	Scope        []string
}

// FactorStatus reports one factor's enrollment state for a user. Eligible is
// false when the session already carries a factor of the same category, so
// the factor cannot be used for a further step-up.
type FactorStatus struct {
	Factor   entity.AuthMethod `json:"factor"`
	Enrolled bool              `json:"enrolled"`
	Eligible bool              `json:"eligible"`
}

// MfaUsecase handles factor step-up and enrollment on existing sessions.
type MfaUsecase interface {
	// StepUp verifies an additional factor and folds it into the session.
	// The refresh token value never rotates; only new access and ID tokens
	// are issued. A factor whose category is already on the session is
	// rejected.
	StepUp(ctx context.Context, input *StepUpInput) (*entity.TokenBundle, error)

	// Enroll stores a new factor secret for the session's user, folds the
	// factor into the session and issues new tokens on the same refresh
	// token. A factor the session or the profile already carries is
	// rejected.
	Enroll(ctx context.Context, input *EnrollInput) (*entity.TokenBundle, error)

	// ListFactors reports enrollment state for every supported factor.
	ListFactors(ctx context.Context, tenantID, clientID, refreshToken string) ([]FactorStatus, error)
}
