package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	repo "github.com/safrareport/auth-service/internal/auth/repository/postgres"
	"github.com/safrareport/auth-service/pkg/constant"
)

func TestAttemptRecord(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewAttemptRepository(mock)
	ctx := context.Background()

	t.Run("failure attempt", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO login_attempts").
			WithArgs(constant.KindUser, "lector@safrareport.do", "1.2.3.4", false).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, r.Record(ctx, constant.KindUser, "lector@safrareport.do", "1.2.3.4", false))
	})

	t.Run("success attempt", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO login_attempts").
			WithArgs(constant.KindUser, "lector@safrareport.do", "1.2.3.4", true).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, r.Record(ctx, constant.KindUser, "lector@safrareport.do", "1.2.3.4", true))
	})
}

func TestAttemptCountRecentFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewAttemptRepository(mock)
	ctx := context.Background()

	t.Run("returns count", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT(.+) FROM login_attempts").
			WithArgs(constant.KindUser, "lector@safrareport.do", "1.2.3.4", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

		count, err := r.CountRecentFailed(ctx, constant.KindUser, "lector@safrareport.do", "1.2.3.4", 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT(.+) FROM login_attempts").
			WithArgs(constant.KindUser, "lector@safrareport.do", "1.2.3.4", pgxmock.AnyArg()).
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.CountRecentFailed(ctx, constant.KindUser, "lector@safrareport.do", "1.2.3.4", 15*time.Minute)
		assert.Error(t, err)
	})
}

func TestAttemptDeleteBefore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewAttemptRepository(mock)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec("DELETE FROM login_attempts").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := r.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
