// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import "strings"

// AuthMethodCategory is the class of proof an authentication method provides.
// A session may count at most one method per category toward its factor count.
type AuthMethodCategory string

const (
	// CategoryKnowledge covers secrets the user memorises (password, PIN).
	CategoryKnowledge AuthMethodCategory = "knowledge"
	// CategoryOTP covers one-time codes delivered out of band.
	CategoryOTP AuthMethodCategory = "otp"
	// CategoryPossession covers proof of a device-bound private key.
	CategoryPossession AuthMethodCategory = "possession"
)

// AuthMethod is a closed enumeration of the ways a user can prove identity.
type AuthMethod string

const (
	AuthMethodPassword         AuthMethod = "PASSWORD"
	AuthMethodPin              AuthMethod = "PIN"
	AuthMethodEmailOTP         AuthMethod = "EMAIL_OTP"
	AuthMethodSmsOTP           AuthMethod = "SMS_OTP"
	AuthMethodHardwareKeyProof AuthMethod = "HARDWARE_KEY_PROOF"
)

// Category returns the proof class of the method.
func (m AuthMethod) Category() AuthMethodCategory {
	switch m {
	case AuthMethodPassword, AuthMethodPin:
		return CategoryKnowledge
	case AuthMethodEmailOTP, AuthMethodSmsOTP:
		return CategoryOTP
	case AuthMethodHardwareKeyProof:
		return CategoryPossession
	}

	return ""
}

// Wire returns the value carried in the JWT "amr" claim for this method.
func (m AuthMethod) Wire() string {
	switch m {
	case AuthMethodPassword:
		return "pwd"
	case AuthMethodPin:
		return "pin"
	case AuthMethodEmailOTP, AuthMethodSmsOTP:
		return "otp"
	case AuthMethodHardwareKeyProof:
		return "hwk"
	}

	return strings.ToLower(string(m))
}

// Valid reports whether the value is one of the known methods.
func (m AuthMethod) Valid() bool {
	return m.Category() != ""
}

// HasCategory reports whether any method in the list belongs to the category.
func HasCategory(methods []AuthMethod, category AuthMethodCategory) bool {
	for _, m := range methods {
		if m.Category() == category {
			return true
		}
	}

	return false
}

// ContainsMethod reports whether the exact method is already in the list.
func ContainsMethod(methods []AuthMethod, method AuthMethod) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}

	return false
}

// MergeAuthMethods appends method to the list unless its category is already
// represented. The returned slice preserves the original order; the input is
// never mutated.
func MergeAuthMethods(methods []AuthMethod, method AuthMethod) []AuthMethod {
	if HasCategory(methods, method.Category()) {
		return methods
	}

	merged := make([]AuthMethod, 0, len(methods)+1)
	merged = append(merged, methods...)
	merged = append(merged, method)

	return merged
}

// MergeScopes unions two scope lists, keeping first-seen order.
func MergeScopes(existing, requested []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(requested))
	merged := make([]string, 0, len(existing)+len(requested))

	for _, scope := range existing {
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		merged = append(merged, scope)
	}
	for _, scope := range requested {
		if _, ok := seen[scope]; ok {
			continue
		}
		seen[scope] = struct{}{}
		merged = append(merged, scope)
	}

	return merged
}

// WireAuthMethods maps a method list to its amr wire values, deduplicated.
func WireAuthMethods(methods []AuthMethod) []string {
	seen := make(map[string]struct{}, len(methods))
	wires := make([]string, 0, len(methods))
	for _, m := range methods {
		wire := m.Wire()
		if _, ok := seen[wire]; ok {
			continue
		}
		seen[wire] = struct{}{}
		wires = append(wires, wire)
	}

	return wires
}

// JoinAuthMethods serialises a method list for column storage.
func JoinAuthMethods(methods []AuthMethod) string {
	parts := make([]string, 0, len(methods))
	for _, m := range methods {
		parts = append(parts, string(m))
	}

	return strings.Join(parts, ",")
}

// ParseAuthMethods deserialises a stored method list, dropping unknown values.
func ParseAuthMethods(raw string) []AuthMethod {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	methods := make([]AuthMethod, 0, len(parts))
	for _, part := range parts {
		m := AuthMethod(strings.TrimSpace(part))
		if m.Valid() {
			methods = append(methods, m)
		}
	}

	return methods
}
