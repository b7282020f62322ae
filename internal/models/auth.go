package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RequestOTPRequest asks for a login code to be sent to a phone number.
type RequestOTPRequest struct {
	Phone string `json:"phone" validate:"required,len=10,numeric"`
}

// VerifyOTPRequest exchanges a login code for tokens.
type VerifyOTPRequest struct {
	Phone     string `json:"phone" validate:"required,len=10,numeric"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// StaffLoginRequest holds credentials for admin/manager password login.
type StaffLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID        string   `json:"id"`
	SocietyID string   `json:"society_id"`
	UnitID    *string  `json:"unit_id,omitempty"`
	Phone     string   `json:"phone"`
	FullName  string   `json:"full_name"`
	Role      UserRole `json:"role"`
}

// JWTClaims represents the JWT payload for access tokens. SocietyID and
// UnitID scope every action surface call, replacing the ambient role store
// the mobile client kept.
type JWTClaims struct {
	UserID    string   `json:"user_id"`
	SocietyID string   `json:"society_id"`
	UnitID    *string  `json:"unit_id,omitempty"`
	Role      UserRole `json:"role"`
	Phone     string   `json:"phone"`
	FullName  string   `json:"full_name"`
	jwt.RegisteredClaims
}
