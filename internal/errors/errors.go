package errors

import (
	"errors"
)

var (
	ErrTooManyLoginAttempts = errors.New("too many failed login attempts")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrTwoFactorRequired    = errors.New("two-factor code required")
	ErrAccountDisabled      = errors.New("account disabled")
	ErrEmailAlreadyInUse    = errors.New("email already in use")
	ErrWeakPassword         = errors.New("password too short")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrResetTokenInvalid        = errors.New("password reset token invalid or spent")
	ErrVerificationTokenInvalid = errors.New("verification token invalid or spent")

	ErrIdentityNotFound        = errors.New("identity not found")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
)
