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

var identityColumns = []string{
	"id", "email", "password_hash", "role", "active", "email_verified",
	"two_factor_secret", "two_factor_enabled", "failed_attempts", "locked_until",
	"last_login_at", "created_at", "updated_at",
}

func identityRow(id, email string) *pgxmock.Rows {
	now := time.Now()
	secret := "JBSWY3DPEHPK3PXP"
	return pgxmock.NewRows(identityColumns).
		AddRow(id, email, "hash", constant.RoleUser, true, true,
			&secret, false, 0, (*time.Time)(nil),
			(*time.Time)(nil), now, now)
}

func TestIdentityGetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)
	ctx := context.Background()
	email := "lector@safrareport.do"

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE email").
			WithArgs(email).
			WillReturnRows(identityRow("identity-1", email))

		identity, err := r.GetByEmail(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, "identity-1", identity.ID)
		assert.Equal(t, constant.KindUser, identity.Kind)
		assert.Equal(t, "JBSWY3DPEHPK3PXP", identity.TwoFactorSecret)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE email").
			WithArgs(email).
			WillReturnError(pgx.ErrNoRows)

		identity, err := r.GetByEmail(ctx, email)
		require.NoError(t, err)
		assert.Nil(t, identity)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE email").
			WithArgs(email).
			WillReturnError(fmt.Errorf("db error"))

		_, err := r.GetByEmail(ctx, email)
		assert.Error(t, err)
	})
}

// The admin repository serves the same queries against the admins table.
func TestIdentityAdminKindUsesAdminsTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindAdmin)
	assert.Equal(t, constant.KindAdmin, r.Kind())

	mock.ExpectQuery("FROM admins WHERE email").
		WithArgs("redaccion@safrareport.do").
		WillReturnRows(identityRow("admin-1", "redaccion@safrareport.do"))

	identity, err := r.GetByEmail(context.Background(), "redaccion@safrareport.do")
	require.NoError(t, err)
	assert.Equal(t, constant.KindAdmin, identity.Kind)
}

func TestIdentityGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs("identity-1").
			WillReturnRows(identityRow("identity-1", "lector@safrareport.do"))

		identity, err := r.GetByID(ctx, "identity-1")
		require.NoError(t, err)
		assert.Equal(t, "identity-1", identity.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("FROM users WHERE id").
			WithArgs("gone").
			WillReturnError(pgx.ErrNoRows)

		identity, err := r.GetByID(ctx, "gone")
		require.NoError(t, err)
		assert.Nil(t, identity)
	})
}

func TestIdentityCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)
	now := time.Now()
	identity := &domain.Identity{
		ID:           "identity-1",
		Email:        "lector@safrareport.do",
		PasswordHash: "hash",
		Role:         constant.RoleUser,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	mock.ExpectExec("INSERT INTO users").
		WithArgs(identity.ID, identity.Email, identity.PasswordHash, identity.Role,
			identity.Active, identity.EmailVerified, identity.CreatedAt, identity.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, r.Create(context.Background(), identity))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityUpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)

	mock.ExpectExec("UPDATE users SET password_hash").
		WithArgs("identity-1", "new-hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, r.UpdatePassword(context.Background(), "identity-1", "new-hash"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentitySetTwoFactor(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)

	mock.ExpectExec("UPDATE users SET two_factor_secret").
		WithArgs("identity-1", "JBSWY3DPEHPK3PXP", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, r.SetTwoFactor(context.Background(), "identity-1", "JBSWY3DPEHPK3PXP", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityRecordLoginSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)

	mock.ExpectExec("UPDATE users SET last_login_at").
		WithArgs("identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, r.RecordLoginSuccess(context.Background(), "identity-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityIncrementFailedAttempts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)

	mock.ExpectExec("UPDATE users SET failed_attempts = failed_attempts").
		WithArgs("identity-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, r.IncrementFailedAttempts(context.Background(), "identity-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentityList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r := repo.NewIdentityRepository(mock, constant.KindUser)

	rows := identityRow("identity-1", "a@safrareport.do")
	now := time.Now()
	rows.AddRow("identity-2", "b@safrareport.do", "hash", constant.RoleEditor, true, false,
		(*string)(nil), false, 0, (*time.Time)(nil), (*time.Time)(nil), now, now)

	mock.ExpectQuery("FROM users ORDER BY created_at").
		WithArgs(50, 0).
		WillReturnRows(rows)

	out, err := r.List(context.Background(), 50, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "identity-1", out[0].ID)
	assert.Equal(t, "", out[1].TwoFactorSecret)
}
