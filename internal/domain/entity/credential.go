package entity

import (
	"time"

	"github.com/google/uuid"
)

// CredentialAlgES256 is the only signature algorithm accepted for
// device-bound credentials (ECDSA P-256 with SHA-256, DER signatures).
const CredentialAlgES256 = "ES256"

// Credential is a device-bound public key registered through the biometric
// challenge protocol.
//
// Invariant: at most one row with IsActive=true per
// (TenantID, ClientID, UserID, DeviceID). A credential is only revoked
// atomically with the insertion of its replacement.
type Credential struct {
	ID           uuid.UUID
	TenantID     string
	ClientID     string
	UserID       string
	DeviceID     string
	Platform     string     // e.g. "android", "ios".
	CredentialID string     // Client-asserted identifier for the key pair.
	PublicKey    string     // PEM-encoded X.509 SubjectPublicKeyInfo, EC P-256.
	BindingType  string     // How the key is bound to the device (e.g. "biometric").
	Alg          string     // Always CredentialAlgES256.
	SignCount    uint32     // Authenticator signature counter at registration.
	AAGUID       string     // Authenticator model identifier, if reported.
	IsActive     bool       // False once superseded.
	RevokedAt    *time.Time // Set when the replacement credential was inserted.
	CreatedAt    time.Time
}

// BiometricChallenge is a single-use random value the device must sign to
// prove possession of its private key.
//
// Lifecycle: issued -> consumed (valid signature) or issued -> expired (TTL).
// Invalid-signature attempts do not transition state; the challenge survives
// so the client may retry until TTL expiry.
type BiometricChallenge struct {
	State        string         `json:"state"`     // Random URL-safe token, primary key.
	Challenge    string         `json:"challenge"` // 32 random bytes, base64.
	TenantID     string         `json:"tenantId"`
	ClientID     string         `json:"clientId"`
	UserID       string         `json:"userId"`
	Device       DeviceMetadata `json:"deviceMetadata"`
	RefreshToken string         `json:"refreshToken"` // Session the challenge is bound to.
	ExpiresAt    int64          `json:"expiresAt"`    // Epoch seconds.
}

// Expired is a defense-in-depth check; the cache TTL is the primary expiry.
func (c *BiometricChallenge) Expired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}
