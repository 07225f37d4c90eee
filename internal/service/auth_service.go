package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roadready/coachplan-api/internal/models"
	appErrors "github.com/roadready/coachplan-api/pkg/errors"
)

// AuthService validates bearer tokens issued by the external identity
// service. This engine issues no tokens and stores no credentials.
type AuthService struct {
	secret []byte
}

// NewAuthService constructs the token validator.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// ValidateToken parses and verifies an access token, returning its claims.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token missing subject")
	}
	return claims, nil
}
