package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens. FacultyID is set for
// faculty accounts and identifies the caller's profile.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	FacultyID string   `json:"faculty_id,omitempty"`
	jwt.RegisteredClaims
}
