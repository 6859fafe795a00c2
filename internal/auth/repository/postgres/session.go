package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/safrareport/auth-service/internal/auth/domain"
)

type SessionRepository struct {
	db DB
}

func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, identity_id, kind, ip_address, user_agent, active, expires_at, created_at, updated_at`

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
		INSERT INTO sessions (id, identity_id, kind, ip_address, user_agent, active, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		session.ID, session.IdentityID, session.Kind, session.IPAddress,
		session.UserAgent, session.Active, session.ExpiresAt,
		session.CreatedAt, session.UpdatedAt)
	return err
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1 LIMIT 1`, sessionColumns)

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// MarkInactive flips active off in one statement. Rows that are already
// inactive, or ids that do not exist, make this a no-op rather than an
// error; invalidation is idempotent.
func (r *SessionRepository) MarkInactive(ctx context.Context, id string) error {
	const query = `UPDATE sessions SET active = FALSE, updated_at = NOW() WHERE id = $1 AND active = TRUE`
	_, err := r.db.Exec(ctx, query, id)
	return err
}

func (r *SessionRepository) MarkAllInactive(ctx context.Context, kind, identityID string) ([]string, error) {
	const query = `
		UPDATE sessions SET active = FALSE, updated_at = NOW()
		WHERE kind = $1 AND identity_id = $2 AND active = TRUE
		RETURNING id`

	rows, err := r.db.Query(ctx, query, kind, identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SessionRepository) Extend(ctx context.Context, id string, expiresAt time.Time) error {
	const query = `UPDATE sessions SET expires_at = $2, updated_at = NOW() WHERE id = $1 AND active = TRUE`
	_, err := r.db.Exec(ctx, query, id, expiresAt)
	return err
}

func (r *SessionRepository) ListActive(ctx context.Context, kind, identityID string) ([]domain.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sessions
		WHERE kind = $1 AND identity_id = $2 AND active = TRUE AND expires_at > NOW()
		ORDER BY created_at DESC`, sessionColumns)

	rows, err := r.db.Query(ctx, query, kind, identityID)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *session)
	}
	return out, rows.Err()
}

// DeleteDeadBefore removes rows no validation will ever return again:
// inactive, or expired longer ago than the cutoff.
func (r *SessionRepository) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE active = FALSE OR expires_at < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	err := row.Scan(
		&session.ID, &session.IdentityID, &session.Kind,
		&session.IPAddress, &session.UserAgent, &session.Active,
		&session.ExpiresAt, &session.CreatedAt, &session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
