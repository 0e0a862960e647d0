package entity

import "encoding/json"

// UserProfile is the view of a user returned by the external user-profile
// service. Raw carries the full profile document so that tenant-configured
// claim paths can be resolved against fields this service does not model.
type UserProfile struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	PasswordSet bool            `json:"password_set"`
	PinSet      bool            `json:"pin_set"`
	FCMToken    string          `json:"fcm_token"`
	Raw         json.RawMessage `json:"-"`
}

// FactorEnrolled reports whether the profile already carries the secret or
// contact field the factor depends on.
func (p *UserProfile) FactorEnrolled(factor AuthMethod) bool {
	switch factor {
	case AuthMethodPassword:
		return p.PasswordSet
	case AuthMethodPin:
		return p.PinSet
	case AuthMethodEmailOTP:
		return p.Email != ""
	case AuthMethodSmsOTP:
		return p.Phone != ""
	}

	return false
}

// UserUpdate is a secret write performed during factor enrollment.
type UserUpdate struct {
	Factor AuthMethod
	Secret string
}
