package service

import "context"

// SecurityEvent is the envelope published to the security event stream.
type SecurityEvent struct {
	Type      string         `json:"type"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// EventPublisher emits security events for audit and downstream consumers.
// Publishing is best-effort; callers log failures and continue.
type EventPublisher interface {
	// PublishSecurityEvent sends the event to the configured topic.
	PublishSecurityEvent(ctx context.Context, event *SecurityEvent) error

	// Close flushes and releases publisher resources.
	Close() error
}
