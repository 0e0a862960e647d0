package entity

import (
	"time"

	"github.com/google/uuid"
)

// BlockFlow identifies an independently-counted brute-force domain.
// PASSWORD and PIN never share counters or blocks, even for the same user.
type BlockFlow string

const (
	BlockFlowPassword BlockFlow = "PASSWORD"
	BlockFlowPin      BlockFlow = "PIN"
)

// CounterPrefix returns the cache key prefix for this flow's attempt counter.
func (f BlockFlow) CounterPrefix() string {
	switch f {
	case BlockFlowPin:
		return "pin_attempts"
	default:
		return "password_attempts"
	}
}

// FlowBlock is a time-boxed block written when the attempt threshold is
// reached. A block is logically expired once now >= UnblockedAt even while
// IsActive remains true; expiry is a caller-side time comparison, not a
// background sweep.
type FlowBlock struct {
	ID             uuid.UUID
	TenantID       string
	UserIdentifier string
	Flow           BlockFlow
	Reason         string
	UnblockedAt    int64 // Epoch seconds.
	IsActive       bool
	CreatedAt      time.Time
}

// Active reports whether the block still applies at the given time.
func (b *FlowBlock) Active(now time.Time) bool {
	return b.IsActive && now.Unix() < b.UnblockedAt
}
