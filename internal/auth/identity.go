package auth

import "context"

// Role is a free-text role claim such as USER or ADMIN.
type Role string

const (
	RoleNone  Role = ""
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// CallerIdentity is the authenticated principal of a single request.
type CallerIdentity struct {
	Subject    string
	Role       Role
	IdentityID int64
}

type callerKey struct{}

// WithCaller returns a copy of ctx carrying the caller identity.
func WithCaller(ctx context.Context, identity CallerIdentity) context.Context {
	return context.WithValue(ctx, callerKey{}, identity)
}

// CallerFromContext retrieves the identity attached by the authenticator.
func CallerFromContext(ctx context.Context) (CallerIdentity, bool) {
	identity, ok := ctx.Value(callerKey{}).(CallerIdentity)
	return identity, ok
}
