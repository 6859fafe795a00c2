package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safrareport/auth-service/internal/auth/domain"
	"github.com/safrareport/auth-service/internal/auth/dto"
	"github.com/safrareport/auth-service/internal/auth/security"
	autherror "github.com/safrareport/auth-service/internal/errors"
	"github.com/safrareport/auth-service/pkg/constant"
)

func TestAuthService_RequestPasswordReset(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identity := testIdentity("hash")

	var record *domain.OneTimeToken
	f.identities.EXPECT().GetByEmail(gomock.Any(), identity.Email).Return(identity, nil)
	f.oneTime.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r *domain.OneTimeToken) error {
			record = r
			return nil
		})

	token, err := f.svc.RequestPasswordReset(context.Background(), identity.Email)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	require.NotNil(t, record)
	assert.Equal(t, identity.ID, record.IdentityID)
	assert.Equal(t, domain.TokenPurposeReset, record.Purpose)
	assert.Equal(t, constant.KindUser, record.Kind)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), record.ExpiresAt, 5*time.Second)

	// Only the hash hits the store; the raw token must still match it.
	assert.NotContains(t, string(record.TokenHash), token)
	assert.True(t, security.TokenHashEqual(record.TokenHash, token))
}

// An unknown email produces neither a token nor an error; the endpoint
// answers identically either way.
func TestAuthService_RequestPasswordReset_UnknownEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	f.identities.EXPECT().GetByEmail(gomock.Any(), "nadie@safrareport.do").Return(nil, nil)

	token, err := f.svc.RequestPasswordReset(context.Background(), "nadie@safrareport.do")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestAuthService_ResetPassword_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	record := &domain.OneTimeToken{
		ID:         "token-1",
		IdentityID: "identity-1",
		Purpose:    domain.TokenPurposeReset,
	}

	f.oneTime.EXPECT().Consume(gomock.Any(), domain.TokenPurposeReset, security.HashOneTimeToken("el-token")).
		Return(record, nil)

	var newHash string
	f.identities.EXPECT().UpdatePassword(gomock.Any(), "identity-1", gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, hash string) error {
			newHash = hash
			return nil
		})

	// Every session dies after a reset.
	f.sessions.EXPECT().MarkAllInactive(gomock.Any(), constant.KindUser, "identity-1").
		Return([]string{"session-1"}, nil)
	f.cache.EXPECT().Delete(gomock.Any(), "session-1").Return(nil)

	err := f.svc.ResetPassword(context.Background(), dto.ResetPasswordInput{
		Token:       "el-token",
		NewPassword: "nueva1234",
	})
	require.NoError(t, err)
	assert.True(t, f.hasher.Verify(newHash, "nueva1234"))
}

func TestAuthService_ResetPassword_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	f.oneTime.EXPECT().Consume(gomock.Any(), domain.TokenPurposeReset, gomock.Any()).Return(nil, nil)

	err := f.svc.ResetPassword(context.Background(), dto.ResetPasswordInput{
		Token:       "usado-o-vencido",
		NewPassword: "nueva1234",
	})
	assert.ErrorIs(t, err, autherror.ErrResetTokenInvalid)
}

func TestAuthService_ResetPassword_WeakPassword(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	err := f.svc.ResetPassword(context.Background(), dto.ResetPasswordInput{
		Token:       "el-token",
		NewPassword: "corta",
	})
	assert.ErrorIs(t, err, autherror.ErrWeakPassword)
}

func TestAuthService_RequestEmailVerification(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identity := testIdentity("hash")

	var record *domain.OneTimeToken
	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)
	f.oneTime.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r *domain.OneTimeToken) error {
			record = r
			return nil
		})

	token, err := f.svc.RequestEmailVerification(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, domain.TokenPurposeVerification, record.Purpose)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), record.ExpiresAt, 5*time.Second)
}

func TestAuthService_ConfirmEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	record := &domain.OneTimeToken{IdentityID: "identity-1", Purpose: domain.TokenPurposeVerification}

	f.oneTime.EXPECT().Consume(gomock.Any(), domain.TokenPurposeVerification, security.HashOneTimeToken("el-token")).
		Return(record, nil)
	f.identities.EXPECT().MarkEmailVerified(gomock.Any(), "identity-1").Return(nil)

	assert.NoError(t, f.svc.ConfirmEmail(context.Background(), "el-token"))
}

func TestAuthService_ConfirmEmail_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	f.oneTime.EXPECT().Consume(gomock.Any(), domain.TokenPurposeVerification, gomock.Any()).Return(nil, nil)

	err := f.svc.ConfirmEmail(context.Background(), "vencido")
	assert.ErrorIs(t, err, autherror.ErrVerificationTokenInvalid)
}

func TestAuthService_SetupTwoFactor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identity := testIdentity("hash")

	var storedSecret string
	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)
	f.identities.EXPECT().SetTwoFactor(gomock.Any(), identity.ID, gomock.Any(), false).DoAndReturn(
		func(_ context.Context, _ string, secret string, _ bool) error {
			storedSecret = secret
			return nil
		})

	out, err := f.svc.SetupTwoFactor(context.Background(), identity.ID)
	require.NoError(t, err)
	assert.Equal(t, storedSecret, out.Secret)
	assert.Contains(t, out.OtpauthURL, "otpauth://totp/")

	// The provisioned secret produces codes that validate.
	code, err := totp.GenerateCode(out.Secret, time.Now())
	require.NoError(t, err)
	assert.True(t, security.ValidateTOTPCode(code, out.Secret))
}

func TestAuthService_SetupTwoFactor_AlreadyEnabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identity := testIdentity("hash")
	identity.TwoFactorEnabled = true

	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)

	_, err := f.svc.SetupTwoFactor(context.Background(), identity.ID)
	assert.ErrorIs(t, err, autherror.ErrTwoFactorAlreadyEnabled)
}

func TestAuthService_ActivateTwoFactor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	secret, _, err := security.GenerateTOTPSecret(constant.TOTPIssuer, "lector@safrareport.do")
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	identity := testIdentity("hash")
	identity.TwoFactorSecret = secret

	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)
	f.identities.EXPECT().SetTwoFactor(gomock.Any(), identity.ID, secret, true).Return(nil)

	assert.NoError(t, f.svc.ActivateTwoFactor(context.Background(), identity.ID, code))
}

func TestAuthService_ActivateTwoFactor_WrongCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	secret, _, err := security.GenerateTOTPSecret(constant.TOTPIssuer, "lector@safrareport.do")
	require.NoError(t, err)

	identity := testIdentity("hash")
	identity.TwoFactorSecret = secret

	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)

	err = f.svc.ActivateTwoFactor(context.Background(), identity.ID, "000000")
	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
}

func TestAuthService_ActivateTwoFactor_NoSetup(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identity := testIdentity("hash")

	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)

	err := f.svc.ActivateTwoFactor(context.Background(), identity.ID, "123456")
	assert.ErrorIs(t, err, autherror.ErrInvalidCredentials)
}

func TestAuthService_ListIdentities_ClampsLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identities := []domain.Identity{*testIdentity("hash")}

	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "zero falls back", limit: 0, wantLimit: 50},
		{name: "negative falls back", limit: -3, wantLimit: 50},
		{name: "over cap falls back", limit: 500, wantLimit: 50},
		{name: "in range passes through", limit: 20, wantLimit: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.identities.EXPECT().List(gomock.Any(), tt.wantLimit, 0).Return(identities, nil)

			out, err := f.svc.ListIdentities(context.Background(), tt.limit, 0)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, "identity-1", out[0].ID)
		})
	}
}

func TestAuthService_UpdateRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	identity := testIdentity("hash")

	f.identities.EXPECT().GetByID(gomock.Any(), identity.ID).Return(identity, nil)
	f.identities.EXPECT().UpdateRole(gomock.Any(), identity.ID, constant.RoleEditor).Return(nil)

	assert.NoError(t, f.svc.UpdateRole(context.Background(), identity.ID, constant.RoleEditor))
}

func TestAuthService_UpdateRole_UnknownRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	err := f.svc.UpdateRole(context.Background(), "identity-1", "emperador")
	assert.Error(t, err)
}

func TestAuthService_UpdateRole_UnknownIdentity(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newServiceFixture(t, ctrl)

	f.identities.EXPECT().GetByID(gomock.Any(), "gone").Return(nil, nil)

	err := f.svc.UpdateRole(context.Background(), "gone", constant.RoleEditor)
	assert.ErrorIs(t, err, autherror.ErrIdentityNotFound)
}
