// Package constants holds shared domain-level constant values.
package constants

// Pub/Sub provider names.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// User-service provider names.
const (
	UserServiceProviderHTTP  = "http"
	UserServiceProviderLocal = "local"
)

// Security event types published to the event stream.
const (
	EventFlowBlocked       = "auth.flow_blocked"
	EventCredentialRotated = "auth.credential_rotated"
	EventFactorEnrolled    = "auth.factor_enrolled"
	EventSessionRevoked    = "auth.session_revoked"
)

// HeaderTenantID is the HTTP header carrying the tenant identifier.
const HeaderTenantID = "tenant-id"
