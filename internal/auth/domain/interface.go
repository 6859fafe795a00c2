package domain

//go:generate mockgen -destination=../../mocks/mock_repositories.go -package=mocks github.com/safrareport/auth-service/internal/auth/domain IdentityRepository,SessionRepository,AttemptRepository,OneTimeTokenRepository

import (
	"context"
	"time"
)

// IdentityRepository is bound to one principal kind (one table) at
// construction. Lookups return (nil, nil) when no row matches.
type IdentityRepository interface {
	Kind() string
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByID(ctx context.Context, id string) (*Identity, error)
	Create(ctx context.Context, identity *Identity) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateRole(ctx context.Context, id, role string) error
	SetTwoFactor(ctx context.Context, id, secret string, enabled bool) error
	MarkEmailVerified(ctx context.Context, id string) error
	// RecordLoginSuccess updates last_login_at and zeroes the failure
	// counter in a single statement.
	RecordLoginSuccess(ctx context.Context, id string) error
	// IncrementFailedAttempts is a single atomic increment, never a
	// read-modify-write.
	IncrementFailedAttempts(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]Identity, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// MarkInactive is idempotent; deactivating a dead session is a no-op.
	MarkInactive(ctx context.Context, id string) error
	// MarkAllInactive returns the ids of the sessions it deactivated so
	// the caller can purge exactly those cache entries.
	MarkAllInactive(ctx context.Context, kind, identityID string) ([]string, error)
	Extend(ctx context.Context, id string, expiresAt time.Time) error
	ListActive(ctx context.Context, kind, identityID string) ([]Session, error)
	// DeleteDeadBefore removes inactive or expired rows older than the
	// cutoff. Called from the sweep job, never from the request path.
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AttemptRepository interface {
	Record(ctx context.Context, kind, email, ip string, success bool) error
	// CountRecentFailed counts failures inside the trailing window for
	// the email or source IP, not reaching past the most recent success.
	CountRecentFailed(ctx context.Context, kind, email, ip string, window time.Duration) (int, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OneTimeTokenRepository interface {
	Create(ctx context.Context, token *OneTimeToken) error
	// Consume atomically marks the token used and returns it. Spent,
	// expired or unknown tokens return (nil, nil).
	Consume(ctx context.Context, purpose string, tokenHash []byte) (*OneTimeToken, error)
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
