package domain

import "time"

// Identity is a credentialed account, either a reader account or an
// editorial/admin account depending on its principal kind. Both kinds share
// this shape; the kind selects the backing table.
type Identity struct {
	ID           string
	Kind         string
	Email        string
	PasswordHash string
	Role         string
	Active       bool
	EmailVerified bool

	TwoFactorSecret  string
	TwoFactorEnabled bool

	// LockedUntil is advisory only. The rate limiter computes lockout
	// from attempt history so it self-expires across instances.
	FailedAttempts int
	LockedUntil    *time.Time

	LastLoginAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Session is the server-side record behind a logged-in client. Valid iff
// Active and not past ExpiresAt; once inactive or expired it stays dead.
type Session struct {
	ID         string
	IdentityID string
	Kind       string
	IPAddress  string
	UserAgent  string
	Active     bool
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LoginAttempt feeds the sliding-window rate limiter. It is only ever
// counted, never consulted for authorization.
type LoginAttempt struct {
	ID          string
	Kind        string
	Email       string
	IPAddress   string
	AttemptTime time.Time
	Successful  bool
}

// OneTimeToken backs password reset and email verification links. The
// opaque token itself never touches the database; only its SHA-256 hash is
// stored. Single use.
type OneTimeToken struct {
	ID         string
	IdentityID string
	Kind       string
	Purpose    string
	TokenHash  []byte
	ExpiresAt  time.Time
	UsedAt     *time.Time
	CreatedAt  time.Time
}

const (
	TokenPurposeReset        = "password_reset"
	TokenPurposeVerification = "email_verification"
)

// Sanitized returns a copy safe to hand to the HTTP layer: credential and
// second-factor material stripped.
func (i *Identity) Sanitized() Identity {
	out := *i
	out.PasswordHash = ""
	out.TwoFactorSecret = ""
	return out
}
