// Package service defines domain service interfaces that encapsulate
// business capabilities backed by infrastructure implementations.
package service

import (
	"context"

	"aegis/internal/domain/entity"
)

// AccessTokenInput carries everything needed to mint an access token.
type AccessTokenInput struct {
	TenantID     string
	ClientID     string
	UserID       string
	Scope        []string
	AuthMethods  []entity.AuthMethod
	RefreshToken string
	// Profile supplies the claim-path source document for configured claims.
	Profile *entity.UserProfile
}

// IDTokenInput carries everything needed to mint an ID token.
type IDTokenInput struct {
	TenantID    string
	ClientID    string
	UserID      string
	AuthMethods []entity.AuthMethod
	Profile     *entity.UserProfile
}

// TokenIssuer mints signed JWTs and opaque tokens.
type TokenIssuer interface {
	// IssueAccessToken signs an access token with the tenant's active key.
	// The rft_id claim binds the token to its refresh session.
	IssueAccessToken(ctx context.Context, input *AccessTokenInput) (string, error)

	// IssueIDToken signs an identity token with the tenant's active key.
	IssueIDToken(ctx context.Context, input *IDTokenInput) (string, error)

	// GenerateRefreshToken returns a 32-character alphanumeric opaque token
	// from a cryptographic source.
	GenerateRefreshToken() (string, error)

	// GenerateSSOToken returns a 15-character alphanumeric one-time token.
	GenerateSSOToken() (string, error)
}
