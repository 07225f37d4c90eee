package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens. Tokens are issued
// by the external identity service; this engine only validates and reads them.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
