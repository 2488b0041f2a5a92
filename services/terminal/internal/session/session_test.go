package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkgate/services/terminal/internal/apperr"
	"parkgate/services/terminal/internal/models"
)

func signed(t *testing.T, role string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u_1",
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := token.SignedString([]byte("authority-secret"))
	require.NoError(t, err)
	return s
}

func TestSetReadsExpiry(t *testing.T) {
	now := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	h := NewHolder()
	h.now = func() time.Time { return now }

	exp := now.Add(time.Hour)
	h.Set(models.LoginResponse{User: models.User{ID: "u_1", Username: "emp", Role: models.RoleEmployee}, Token: signed(t, models.RoleEmployee, exp)})

	assert.True(t, exp.Equal(h.ExpiresAt()))
	token, err := h.RequireRole(models.RoleEmployee)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = h.RequireRole(models.RoleAdmin)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)

	h.now = func() time.Time { return exp.Add(time.Second) }
	assert.Empty(t, h.Token(), "expired tokens count as logged out")
	_, ok := h.User()
	assert.False(t, ok)
}

func TestOpaqueTokenHasNoExpiry(t *testing.T) {
	h := NewHolder()
	h.Set(models.LoginResponse{User: models.User{ID: "a_1", Role: models.RoleAdmin}, Token: "opaque-token"})

	assert.True(t, h.ExpiresAt().IsZero())
	assert.Equal(t, "opaque-token", h.Token())

	h.Clear()
	_, err := h.RequireRole(models.RoleAdmin)
	assert.ErrorIs(t, err, apperr.ErrPreconditionFailed)
}

func TestRoleFallsBackToClaims(t *testing.T) {
	h := NewHolder()
	h.Set(models.LoginResponse{User: models.User{ID: "a_1"}, Token: signed(t, models.RoleAdmin, time.Now().Add(time.Hour))})

	user, ok := h.User()
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, user.Role)
}
