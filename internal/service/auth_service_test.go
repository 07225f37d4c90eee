package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

func signTestToken(t *testing.T, secret string, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuthServiceValidateToken(t *testing.T) {
	svc := NewAuthService("test-secret")
	raw := signTestToken(t, "test-secret", models.JWTClaims{
		UserID: "coach-1",
		Role:   models.RoleCoach,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "coach-1", claims.UserID)
	assert.Equal(t, models.RoleCoach, claims.Role)
}

func TestAuthServiceRejectsWrongSecret(t *testing.T) {
	svc := NewAuthService("test-secret")
	raw := signTestToken(t, "other-secret", models.JWTClaims{UserID: "coach-1", Role: models.RoleCoach})

	_, err := svc.ValidateToken(raw)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := NewAuthService("test-secret")
	raw := signTestToken(t, "test-secret", models.JWTClaims{
		UserID: "coach-1",
		Role:   models.RoleCoach,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.ValidateToken(raw)
	assert.Error(t, err)
}

func TestAuthServiceRejectsMissingSubject(t *testing.T) {
	svc := NewAuthService("test-secret")
	raw := signTestToken(t, "test-secret", models.JWTClaims{Role: models.RoleCoach})

	_, err := svc.ValidateToken(raw)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthServiceRejectsGarbage(t *testing.T) {
	svc := NewAuthService("test-secret")

	_, err := svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
