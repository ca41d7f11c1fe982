package auth

import (
	"strings"

	"go.uber.org/zap"
)

// TokenValidator narrows decode failures to a boolean at its boundary
// while keeping the detailed error available through ExtractClaims.
type TokenValidator struct {
	codec  *ClaimsCodec
	logger *zap.Logger
}

// NewTokenValidator builds a validator around codec.
func NewTokenValidator(codec *ClaimsCodec, logger *zap.Logger) *TokenValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenValidator{codec: codec, logger: logger}
}

// Validate reports whether token is well formed, correctly signed and unexpired.
func (v *TokenValidator) Validate(token string) bool {
	if strings.TrimSpace(token) == "" {
		return false
	}
	if _, err := v.codec.Decode(token); err != nil {
		v.logger.Debug("token rejected", zap.Stringer("kind", KindOf(err)), zap.Error(err))
		return false
	}
	return true
}

// ExtractClaims decodes token, returning the classified decode error on failure.
func (v *TokenValidator) ExtractClaims(token string) (ClaimSet, error) {
	return v.codec.Decode(token)
}
