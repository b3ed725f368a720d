package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued access token and user info.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresIn   int64     `json:"expires_in"`
	User        UserInfo  `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ChangePasswordRequest payload for updating a password. CurrentPassword may be
// omitted while the account is flagged for a first-login change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" validate:"required,min=6,max=100"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID                 string   `json:"id"`
	Username           string   `json:"username"`
	FullName           string   `json:"full_name"`
	Role               UserRole `json:"role"`
	StudentID          *string  `json:"student_id,omitempty"`
	MustChangePassword bool     `json:"must_change_password"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	Role      UserRole `json:"role"`
	Username  string   `json:"username"`
	StudentID string   `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}
