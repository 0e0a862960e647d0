package usecase

import (
	"context"

	"aegis/internal/domain/entity"
)

// BruteForceGuard wraps credential verification with attempt counting and
// time-boxed blocking. PASSWORD and PIN flows are guarded independently.
type BruteForceGuard interface {
	// Attempt rejects immediately with a MaxAttemptsError when an active
	// block exists, otherwise runs verify. A credential-mismatch failure
	// increments the flow counter and, at the threshold, writes a block and
	// returns a MaxAttemptsError. Success resets the counter. Errors that
	// are not credential mismatches pass through untouched.
	Attempt(ctx context.Context, tenantID, userIdentifier string, flow entity.BlockFlow, verify func() error) error
}
