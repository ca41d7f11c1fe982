package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Token decoding failures.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenInvalid          = errors.New("token invalid")
)

// FailureKind classifies why a token could not be decoded.
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureMalformed
	FailureExpired
)

func (k FailureKind) String() string {
	switch k {
	case FailureMalformed:
		return "malformed"
	case FailureExpired:
		return "expired"
	default:
		return "other"
	}
}

// DecodeError is returned by ClaimsCodec.Decode.
type DecodeError struct {
	Kind  FailureKind
	cause error
	err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode token (%s): %v", e.Kind, e.err)
}

// Unwrap exposes both the taxonomy sentinel and the jwt error.
func (e *DecodeError) Unwrap() []error {
	return []error{e.cause, e.err}
}

// ClaimSet holds the verified claims of a bearer token.
type ClaimSet struct {
	Subject    string
	Role       Role
	IdentityID int64
	ExpiresAt  time.Time
}

type tokenClaims struct {
	Role       string `json:"role,omitempty"`
	IdentityID int64  `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsCodec verifies HMAC-signed JWTs against a shared key.
type ClaimsCodec struct {
	key    []byte
	parser *jwt.Parser
}

// CodecOption customizes a ClaimsCodec.
type CodecOption func(*codecOptions)

type codecOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(o *codecOptions) { o.now = now }
}

// NewClaimsCodec builds a codec for the given signing key.
func NewClaimsCodec(key []byte, opts ...CodecOption) *ClaimsCodec {
	o := codecOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &ClaimsCodec{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(o.now),
		),
	}
}

// Decode verifies the token signature and returns its claims.
func (c *ClaimsCodec) Decode(token string) (ClaimSet, error) {
	claims := &tokenClaims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	})
	if err != nil {
		return ClaimSet{}, classify(err)
	}
	if !parsed.Valid {
		return ClaimSet{}, &DecodeError{Kind: FailureOther, cause: ErrTokenInvalid, err: errors.New("token not valid")}
	}

	set := ClaimSet{
		Subject:    claims.Subject,
		Role:       Role(claims.Role),
		IdentityID: claims.IdentityID,
	}
	if claims.ExpiresAt != nil {
		set.ExpiresAt = claims.ExpiresAt.Time
	}
	return set, nil
}

func classify(err error) *DecodeError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &DecodeError{Kind: FailureExpired, cause: ErrTokenExpired, err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &DecodeError{Kind: FailureMalformed, cause: ErrTokenSignatureInvalid, err: err}
	case errors.Is(err, jwt.ErrTokenMalformed):
		return &DecodeError{Kind: FailureMalformed, cause: ErrTokenMalformed, err: err}
	default:
		return &DecodeError{Kind: FailureOther, cause: ErrTokenInvalid, err: err}
	}
}

// KindOf returns the failure kind of a Decode error.
func KindOf(err error) FailureKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return FailureOther
}
