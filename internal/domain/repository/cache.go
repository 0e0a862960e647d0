package repository

import (
	"context"
	"time"

	"aegis/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrChallengeNotFound is returned when a challenge key is absent or expired.
var ErrChallengeNotFound = errors.New("challenge not found")

// ChallengeStore holds short-lived biometric challenges keyed by opaque state.
type ChallengeStore interface {
	// Save stores the challenge under its state with the given TTL.
	Save(ctx context.Context, challenge *entity.BiometricChallenge, ttl time.Duration) error

	// Find retrieves a challenge by tenant and state, or ErrChallengeNotFound.
	Find(ctx context.Context, tenantID, state string) (*entity.BiometricChallenge, error)

	// Delete removes a challenge. Deleting an absent key is not an error.
	Delete(ctx context.Context, tenantID, state string) error
}

// AttemptCounter tracks failed-attempt counts per flow within a fixed window.
type AttemptCounter interface {
	// Increment bumps the counter for the key and returns the new count.
	// The window TTL is set only when the counter is created.
	Increment(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, window time.Duration) (int64, error)

	// Reset removes the counter for the key.
	Reset(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow) error
}
