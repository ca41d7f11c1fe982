package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const callerLocalsKey = "auth_caller"

// ErrMalformedAuthorization is returned when a mandatory bearer header cannot be parsed.
var ErrMalformedAuthorization = errors.New("malformed authorization header")

// State is where a request ended up in the authentication pipeline.
type State int

const (
	StateUnauthenticated State = iota
	StateRejected
	StateAllowed
)

func (s State) String() string {
	switch s {
	case StateRejected:
		return "rejected"
	case StateAllowed:
		return "allowed"
	default:
		return "unauthenticated"
	}
}

// Result describes the terminal state of one authentication attempt.
type Result struct {
	State    State
	Identity *CallerIdentity
	Reason   error
}

// RequestAuthenticator runs token validation, identity resolution and the
// authorization gate for a request.
type RequestAuthenticator struct {
	validator *TokenValidator
	resolver  IdentityResolver
	gate      AuthorizationGate
	logger    *zap.Logger
}

// NewRequestAuthenticator composes the pipeline.
func NewRequestAuthenticator(validator *TokenValidator, resolver IdentityResolver, logger *zap.Logger) *RequestAuthenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestAuthenticator{validator: validator, resolver: resolver, logger: logger}
}

// Authenticate evaluates an Authorization header value against a required role.
// A malformed header yields ErrMalformedAuthorization only when a role is required.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, header string, required Role) (Result, error) {
	token, present, wellFormed := bearerToken(header)
	if !wellFormed && required != RoleNone {
		return Result{State: StateRejected, Reason: ErrMalformedAuthorization}, ErrMalformedAuthorization
	}

	if !present {
		if a.gate.Authorize(nil, required) == Allow {
			return Result{State: StateUnauthenticated}, nil
		}
		return Result{State: StateRejected, Reason: ErrRoleMismatch}, nil
	}

	if !a.validator.Validate(token) {
		return Result{State: StateRejected, Reason: ErrTokenInvalid}, nil
	}

	identity, err := a.resolver.Resolve(ctx, token)
	if err != nil {
		return Result{State: StateRejected, Reason: err}, nil
	}

	if a.gate.Authorize(&identity, required) == Deny {
		return Result{State: StateRejected, Reason: ErrRoleMismatch}, nil
	}
	return Result{State: StateAllowed, Identity: &identity}, nil
}

// Require builds middleware that admits only callers holding role.
func (a *RequestAuthenticator) Require(role Role) fiber.Handler {
	return a.handler(role)
}

// Optional attaches the caller identity when a valid token is present but
// never rejects the request.
func (a *RequestAuthenticator) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, _ := a.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization), RoleNone)
		if result.State == StateAllowed && result.Identity != nil {
			attach(c, *result.Identity)
		}
		return c.Next()
	}
}

func (a *RequestAuthenticator) handler(required Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := a.Authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization), required)
		if err != nil {
			return apperrors.NewValidationError("invalid authorization header", nil)
		}

		switch result.State {
		case StateAllowed:
			if result.Identity != nil {
				attach(c, *result.Identity)
			}
			return c.Next()
		case StateUnauthenticated:
			return c.Next()
		default:
			a.logger.Debug("request rejected",
				zap.String("path", c.Path()),
				zap.String("required_role", string(required)),
				zap.NamedError("reason", result.Reason),
			)
			return apperrors.NewForbidden()
		}
	}
}

func attach(c *fiber.Ctx, identity CallerIdentity) {
	c.Locals(callerLocalsKey, identity)
	c.SetUserContext(WithCaller(c.UserContext(), identity))
}

// CallerFromFiber retrieves the identity attached to the current request.
func CallerFromFiber(c *fiber.Ctx) (CallerIdentity, bool) {
	identity, ok := c.Locals(callerLocalsKey).(CallerIdentity)
	return identity, ok
}

// bearerToken parses an Authorization header. A blank header or a blank
// bearer token is absent but well formed.
func bearerToken(header string) (token string, present bool, wellFormed bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false, true
	}
	parts := strings.SplitN(header, " ", 2)
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false, false
	}
	if len(parts) == 1 {
		return "", false, true
	}
	token = strings.TrimSpace(parts[1])
	return token, token != "", true
}
