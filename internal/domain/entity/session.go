package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DeviceMetadata describes the device a session or challenge originated from.
type DeviceMetadata struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
	IP         string `json:"ip"`
	Source     string `json:"source"`
	Location   string `json:"location"`
}

// RefreshToken represents a long-lived, authorized user session. It is the
// single source of truth for the session's bound user, client, scopes and
// accumulated authentication methods.
//
// Invariant: AuthMethods contains at most one entry per AuthMethodCategory.
// Rows are deactivated on revocation or supersession, never deleted.
type RefreshToken struct {
	ID          uuid.UUID      // The unique ID for this refresh token record.
	TenantID    string         // Tenant that owns the session.
	ClientID    string         // Client the session was issued to.
	UserID      string         // User the session is bound to (external profile id).
	Token       string         // Opaque CSPRNG token value; never rotated by step-ups.
	Expiry      int64          // Expiry as epoch seconds.
	Scope       []string       // Granted scopes, first-seen order.
	AuthMethods []AuthMethod   // Append-only, category-deduplicated method list.
	IsActive    bool           // False once revoked or superseded.
	Device      DeviceMetadata // Metadata captured at sign-in.
	CreatedAt   time.Time      // When the session was created.
}

// Expired reports whether the token has passed its expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.Unix() >= t.Expiry
}

// SessionSummary is the session-management view of an active refresh token.
type SessionSummary struct {
	ID         uuid.UUID `json:"id"`
	DeviceName string    `json:"deviceName"`
	Location   string    `json:"location"`
	MaskedIP   string    `json:"ip"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MaskIP hides the host portion of an address for session listings.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if idx := strings.LastIndex(ip, "."); idx > 0 {
		return ip[:idx] + ".xxx"
	}
	if idx := strings.LastIndex(ip, ":"); idx > 0 {
		return ip[:idx] + ":xxxx"
	}

	return "xxx"
}

// TokenBundle is the result of token issuance for a session.
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	IDToken      string `json:"idToken,omitempty"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}
