package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/safrareport/auth-service/internal/auth/domain"
	"github.com/safrareport/auth-service/internal/auth/dto"
	"github.com/safrareport/auth-service/internal/auth/security"
	autherror "github.com/safrareport/auth-service/internal/errors"
	"github.com/safrareport/auth-service/pkg/constant"
)

// RequestPasswordReset issues a single-use reset token. An unknown email
// returns an empty token and no error so the endpoint response is the same
// either way; delivery is the mailer's job.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	identity, err := s.identities.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", nil
	}

	token, err := s.issueOneTimeToken(ctx, identity.ID, domain.TokenPurposeReset, s.cfg.Security.ResetTokenTTL)
	if err != nil {
		return "", err
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("password reset requested")

	return token, nil
}

// ResetPassword consumes a reset token and replaces the password. Every
// session dies; the bearer has to log in again everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, input dto.ResetPasswordInput) error {
	if len(input.NewPassword) < constant.MinPasswordLength {
		return autherror.ErrWeakPassword
	}

	record, err := s.oneTime.Consume(ctx, domain.TokenPurposeReset, security.HashOneTimeToken(input.Token))
	if err != nil {
		return err
	}
	if record == nil {
		return autherror.ErrResetTokenInvalid
	}

	passwordHash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.identities.UpdatePassword(ctx, record.IdentityID, passwordHash); err != nil {
		return err
	}

	if err := s.InvalidateAll(ctx, record.IdentityID); err != nil {
		return err
	}

	s.log.Info().Str("identity_id", record.IdentityID).Msg("password reset completed")

	return nil
}

// RequestEmailVerification issues a verification token for the identity.
func (s *AuthService) RequestEmailVerification(ctx context.Context, identityID string) (string, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return "", err
	}
	if identity == nil {
		return "", autherror.ErrIdentityNotFound
	}

	return s.issueOneTimeToken(ctx, identityID, domain.TokenPurposeVerification, s.cfg.Security.VerificationTokenTTL)
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	record, err := s.oneTime.Consume(ctx, domain.TokenPurposeVerification, security.HashOneTimeToken(token))
	if err != nil {
		return err
	}
	if record == nil {
		return autherror.ErrVerificationTokenInvalid
	}

	return s.identities.MarkEmailVerified(ctx, record.IdentityID)
}

func (s *AuthService) issueOneTimeToken(ctx context.Context, identityID, purpose string, ttl time.Duration) (string, error) {
	token, tokenHash, err := security.NewOneTimeToken(32)
	if err != nil {
		return "", err
	}

	record := &domain.OneTimeToken{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Kind:       s.identities.Kind(),
		Purpose:    purpose,
		TokenHash:  tokenHash,
		ExpiresAt:  time.Now().Add(ttl),
		CreatedAt:  time.Now(),
	}

	if err := s.oneTime.Create(ctx, record); err != nil {
		return "", err
	}

	return token, nil
}

// SetupTwoFactor provisions a TOTP secret. The factor only starts gating
// logins after ActivateTwoFactor proves the client can produce codes.
func (s *AuthService) SetupTwoFactor(ctx context.Context, identityID string) (*dto.TwoFactorSetupOutput, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, autherror.ErrIdentityNotFound
	}
	if identity.TwoFactorEnabled {
		return nil, autherror.ErrTwoFactorAlreadyEnabled
	}

	secret, otpauthURL, err := security.GenerateTOTPSecret(constant.TOTPIssuer, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	if err := s.identities.SetTwoFactor(ctx, identityID, secret, false); err != nil {
		return nil, err
	}

	return &dto.TwoFactorSetupOutput{Secret: secret, OtpauthURL: otpauthURL}, nil
}

func (s *AuthService) ActivateTwoFactor(ctx context.Context, identityID, code string) error {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if identity == nil {
		return autherror.ErrIdentityNotFound
	}
	if identity.TwoFactorSecret == "" {
		return autherror.ErrInvalidCredentials
	}

	if !security.ValidateTOTPCode(code, identity.TwoFactorSecret) {
		return autherror.ErrInvalidCredentials
	}

	if err := s.identities.SetTwoFactor(ctx, identityID, identity.TwoFactorSecret, true); err != nil {
		return err
	}

	s.log.Info().Str("identity_id", identityID).Msg("two-factor enabled")

	return nil
}

// Admin operations. Routed through the admin service instance only.

func (s *AuthService) ListIdentities(ctx context.Context, limit, offset int) ([]dto.IdentityOutput, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	identities, err := s.identities.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	out := make([]dto.IdentityOutput, 0, len(identities))
	for i := range identities {
		out = append(out, IdentityOutput(&identities[i]))
	}
	return out, nil
}

func (s *AuthService) UpdateRole(ctx context.Context, identityID, role string) error {
	if !constant.ValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if identity == nil {
		return autherror.ErrIdentityNotFound
	}

	return s.identities.UpdateRole(ctx, identityID, role)
}
