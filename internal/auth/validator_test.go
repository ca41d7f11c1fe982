package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAdminToken(t *testing.T) {
	v := newTestValidator()
	t1 := adminToken(t, time.Now().Add(time.Hour))

	assert.True(t, v.Validate(t1))
	claims, err := v.ExtractClaims(t1)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestValidateExpiredToken(t *testing.T) {
	v := newTestValidator()
	t2 := adminToken(t, time.Now().Add(-time.Hour))

	assert.False(t, v.Validate(t2))
	_, err := v.ExtractClaims(t2)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateBlankToken(t *testing.T) {
	v := newTestValidator()
	assert.False(t, v.Validate(""))
	assert.False(t, v.Validate("   "))
}

func TestValidateRejectsEverySingleByteChange(t *testing.T) {
	v := newTestValidator()
	token := adminToken(t, time.Now().Add(time.Hour))
	require.True(t, v.Validate(token))

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == replacement {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]
		assert.False(t, v.Validate(tampered), "byte %d changed %q -> %q", i, token[i], replacement)
	}
}
