package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/safrareport/auth-service/internal/auth/domain"
)

type OneTimeTokenRepository struct {
	db DB
}

func NewOneTimeTokenRepository(db DB) *OneTimeTokenRepository {
	return &OneTimeTokenRepository{db: db}
}

func (r *OneTimeTokenRepository) Create(ctx context.Context, token *domain.OneTimeToken) error {
	const query = `
		INSERT INTO one_time_tokens (id, identity_id, kind, purpose, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		token.ID, token.IdentityID, token.Kind, token.Purpose,
		token.TokenHash, token.ExpiresAt, token.CreatedAt)
	return err
}

// Consume marks the token spent and returns it in the same statement, so
// two racing confirmations cannot both succeed. Unknown, expired or spent
// tokens return (nil, nil).
func (r *OneTimeTokenRepository) Consume(ctx context.Context, purpose string, tokenHash []byte) (*domain.OneTimeToken, error) {
	const query = `
		UPDATE one_time_tokens
		SET used_at = NOW()
		WHERE purpose = $1 AND token_hash = $2 AND used_at IS NULL AND expires_at > NOW()
		RETURNING id, identity_id, kind, purpose, token_hash, expires_at, used_at, created_at`

	var token domain.OneTimeToken
	err := r.db.QueryRow(ctx, query, purpose, tokenHash).Scan(
		&token.ID, &token.IdentityID, &token.Kind, &token.Purpose,
		&token.TokenHash, &token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume one-time token: %w", err)
	}
	return &token, nil
}

func (r *OneTimeTokenRepository) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM one_time_tokens WHERE used_at IS NOT NULL OR expires_at < $1`
	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
