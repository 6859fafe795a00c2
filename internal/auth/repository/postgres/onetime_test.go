package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safrareport/auth-service/internal/auth/domain"
	repo "github.com/safrareport/auth-service/internal/auth/repository/postgres"
	"github.com/safrareport/auth-service/pkg/constant"
)

func TestOneTimeTokenCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewOneTimeTokenRepository(mock)
	now := time.Now()
	token := &domain.OneTimeToken{
		ID:         "token-1",
		IdentityID: "identity-1",
		Kind:       constant.KindUser,
		Purpose:    domain.TokenPurposeReset,
		TokenHash:  []byte{0xde, 0xad, 0xbe, 0xef},
		ExpiresAt:  now.Add(15 * time.Minute),
		CreatedAt:  now,
	}

	mock.ExpectExec("INSERT INTO one_time_tokens").
		WithArgs(token.ID, token.IdentityID, token.Kind, token.Purpose,
			token.TokenHash, token.ExpiresAt, token.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, r.Create(context.Background(), token))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOneTimeTokenConsume(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewOneTimeTokenRepository(mock)
	ctx := context.Background()
	hash := []byte{0xde, 0xad, 0xbe, 0xef}
	columns := []string{"id", "identity_id", "kind", "purpose", "token_hash", "expires_at", "used_at", "created_at"}

	t.Run("success", func(t *testing.T) {
		now := time.Now()
		mock.ExpectQuery("UPDATE one_time_tokens").
			WithArgs(domain.TokenPurposeReset, hash).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow("token-1", "identity-1", constant.KindUser, domain.TokenPurposeReset,
					hash, now.Add(10*time.Minute), &now, now.Add(-time.Minute)))

		token, err := r.Consume(ctx, domain.TokenPurposeReset, hash)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "identity-1", token.IdentityID)
		require.NotNil(t, token.UsedAt)
	})

	// Spent, expired and unknown tokens all come back as no rows.
	t.Run("not consumable", func(t *testing.T) {
		mock.ExpectQuery("UPDATE one_time_tokens").
			WithArgs(domain.TokenPurposeReset, hash).
			WillReturnError(pgx.ErrNoRows)

		token, err := r.Consume(ctx, domain.TokenPurposeReset, hash)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("UPDATE one_time_tokens").
			WithArgs(domain.TokenPurposeReset, hash).
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.Consume(ctx, domain.TokenPurposeReset, hash)
		assert.Error(t, err)
	})
}

func TestOneTimeTokenDeleteDeadBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewOneTimeTokenRepository(mock)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec("DELETE FROM one_time_tokens").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := r.DeleteDeadBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
