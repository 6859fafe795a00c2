package dto

import (
	"time"
)

type IdentityOutput struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Active        bool       `json:"active"`
	EmailVerified bool       `json:"email_verified"`
	TwoFactor     bool       `json:"two_factor_enabled"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type TokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	SessionID    string         `json:"-"`
	User         IdentityOutput `json:"user"`
}

type SessionOutput struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TwoFactorSetupOutput struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauth_url"`
}

type UpdateRoleInput struct {
	Role string `json:"role" validate:"required,oneof=user editor moderator admin super_admin"`
}
