package usecase

import (
	"context"

	"aegis/internal/domain/entity"
)

// ChallengeInput requests a new biometric challenge for a session.
type ChallengeInput struct {
	TenantID     string
	ClientID     string
	RefreshToken string
	Device       entity.DeviceMetadata
}

// ChallengeResult is an issued challenge the device must sign. CredentialID
// names the device's active credential when one exists; clients treat an
// empty value as a registration prompt.
type ChallengeResult struct {
	State        string `json:"state"`
	Challenge    string `json:"challenge"`
	ExpiresAt    int64  `json:"expiresAt"`
	CredentialID string `json:"credentialId,omitempty"`
}

// CompleteInput carries the signed challenge response. RefreshToken must
// match the value the challenge was issued against. PublicKey is set when
// the device registers or rotates its key pair; otherwise the stored
// credential verifies the signature.
type CompleteInput struct {
	TenantID     string
	ClientID     string
	RefreshToken string
	State        string
	Signature    string
	PublicKey    string
	CredentialID string
	Platform     string
	BindingType  string
	SignCount    uint32
	AAGUID       string
}

// CompleteResult is a successful challenge completion.
type CompleteResult struct {
	UserID string
	Tokens *entity.TokenBundle
	Cookie entity.CookiePolicy
}

// BiometricUsecase implements the device key challenge and response protocol.
type BiometricUsecase interface {
	// CreateChallenge issues a single-use challenge bound to the session.
	CreateChallenge(ctx context.Context, input *ChallengeInput) (*ChallengeResult, error)

	// Complete verifies the device signature over the challenge. A valid
	// signature consumes the challenge exactly once; an invalid one leaves
	// it in place for retry until TTL expiry. When a public key is supplied
	// the device's credential is rotated atomically with registration.
	Complete(ctx context.Context, input *CompleteInput) (*CompleteResult, error)
}
