package auth

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func signToken(t *testing.T, key []byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T, exp time.Time) string {
	return signToken(t, testKey, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "alice@example.com",
		"role": "ADMIN",
		"id":   7,
		"exp":  exp.Unix(),
	})
}

func userToken(t *testing.T, exp time.Time) string {
	return signToken(t, testKey, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "bob@example.com",
		"role": "USER",
		"id":   8,
		"exp":  exp.Unix(),
	})
}

func newTestValidator() *TokenValidator {
	return NewTokenValidator(NewClaimsCodec(testKey), nil)
}
