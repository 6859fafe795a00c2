package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/safrareport/auth-service/internal/auth/domain"
	"github.com/safrareport/auth-service/pkg/constant"
)

// IdentityRepository serves one principal kind; the kind picks the table.
// Reader accounts live in users, editorial accounts in admins. The two
// tables have identical shape.
type IdentityRepository struct {
	db    DB
	kind  string
	table string
}

func NewIdentityRepository(db DB, kind string) *IdentityRepository {
	table := "users"
	if kind == constant.KindAdmin {
		table = "admins"
	}
	return &IdentityRepository{db: db, kind: kind, table: table}
}

func (r *IdentityRepository) Kind() string {
	return r.kind
}

const identityColumns = `id, email, password_hash, role, active, email_verified,
		two_factor_secret, two_factor_enabled, failed_attempts, locked_until,
		last_login_at, created_at, updated_at`

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = $1 LIMIT 1`, identityColumns, r.table)

	identity, err := r.scanIdentity(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity by email: %w", err)
	}
	return identity, nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 LIMIT 1`, identityColumns, r.table)

	identity, err := r.scanIdentity(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity by id: %w", err)
	}
	return identity, nil
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, email, password_hash, role, active, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, r.table)

	_, err := r.db.Exec(ctx, query,
		identity.ID, identity.Email, identity.PasswordHash, identity.Role,
		identity.Active, identity.EmailVerified, identity.CreatedAt, identity.UpdatedAt)
	return err
}

func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET password_hash = $2, updated_at = NOW() WHERE id = $1`, r.table)
	_, err := r.db.Exec(ctx, query, id, passwordHash)
	return err
}

func (r *IdentityRepository) UpdateRole(ctx context.Context, id, role string) error {
	query := fmt.Sprintf(`UPDATE %s SET role = $2, updated_at = NOW() WHERE id = $1`, r.table)
	_, err := r.db.Exec(ctx, query, id, role)
	return err
}

func (r *IdentityRepository) SetTwoFactor(ctx context.Context, id, secret string, enabled bool) error {
	query := fmt.Sprintf(`
		UPDATE %s SET two_factor_secret = $2, two_factor_enabled = $3, updated_at = NOW()
		WHERE id = $1`, r.table)
	_, err := r.db.Exec(ctx, query, id, secret, enabled)
	return err
}

func (r *IdentityRepository) MarkEmailVerified(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, r.table)
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *IdentityRepository) RecordLoginSuccess(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET last_login_at = NOW(), failed_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1`, r.table)
	_, err := r.db.Exec(ctx, query, id)
	return err
}

// IncrementFailedAttempts is a single statement so concurrent failures
// never race a read-modify-write.
func (r *IdentityRepository) IncrementFailedAttempts(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET failed_attempts = failed_attempts + 1, updated_at = NOW()
		WHERE id = $1`, r.table)
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *IdentityRepository) List(ctx context.Context, limit, offset int) ([]domain.Identity, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`, identityColumns, r.table)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []domain.Identity
	for rows.Next() {
		identity, err := r.scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *identity)
	}
	return out, rows.Err()
}

func (r *IdentityRepository) scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var identity domain.Identity
	var twoFactorSecret *string

	err := row.Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash, &identity.Role,
		&identity.Active, &identity.EmailVerified,
		&twoFactorSecret, &identity.TwoFactorEnabled,
		&identity.FailedAttempts, &identity.LockedUntil,
		&identity.LastLoginAt, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	identity.Kind = r.kind
	if twoFactorSecret != nil {
		identity.TwoFactorSecret = *twoFactorSecret
	}
	return &identity, nil
}
