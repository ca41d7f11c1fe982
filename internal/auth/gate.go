package auth

import "errors"

// ErrRoleMismatch is reported when a caller lacks the required role.
var ErrRoleMismatch = errors.New("role mismatch")

// Decision is the outcome of an authorization check.
type Decision bool

const (
	Deny  Decision = false
	Allow Decision = true
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// AuthorizationGate compares a caller's role with an endpoint requirement.
// Roles match exactly and case-sensitively.
type AuthorizationGate struct{}

// Authorize returns Allow when no role is required or the identity holds it.
func (AuthorizationGate) Authorize(identity *CallerIdentity, required Role) Decision {
	if required == RoleNone {
		return Allow
	}
	if identity == nil || identity.Role == RoleNone {
		return Deny
	}
	if identity.Role != required {
		return Deny
	}
	return Allow
}
