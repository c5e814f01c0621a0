package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT(7, "ops@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, "ops@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestJWT_Rejects(t *testing.T) {
	SetJWTSecret("test-secret")

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateJWT(1, "a@b.c", RoleStaff, -time.Minute)
		require.NoError(t, err)
		_, err = ValidateJWT(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateJWT(1, "a@b.c", RoleStaff, time.Hour)
		require.NoError(t, err)
		SetJWTSecret("other-secret")
		defer SetJWTSecret("test-secret")
		_, err = ValidateJWT(token)
		assert.True(t, errors.Is(err, ErrInvalidToken))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ValidateJWT("not.a.token")
		assert.Error(t, err)
	})
}
