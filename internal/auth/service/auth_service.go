package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/safrareport/auth-service/config"
	"github.com/safrareport/auth-service/internal/auth/domain"
	"github.com/safrareport/auth-service/internal/auth/dto"
	"github.com/safrareport/auth-service/internal/auth/security"
	autherror "github.com/safrareport/auth-service/internal/errors"
	"github.com/safrareport/auth-service/pkg/constant"
)

//go:generate mockgen -destination=../../mocks/mock_session_cache.go -package=mocks github.com/safrareport/auth-service/internal/auth/service SessionCache

// SessionCache fronts the session table for the hot validation path. A miss
// is (nil, nil). Invalidation deletes keys so validity checks are
// read-after-write consistent with the store.
type SessionCache interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Set(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// AuthService runs the whole login pipeline for one principal kind. The
// reader-facing service and the admin service are two instances of this
// type over different identity tables; nothing else is duplicated.
type AuthService struct {
	identities domain.IdentityRepository
	sessions   domain.SessionRepository
	attempts   domain.AttemptRepository
	oneTime    domain.OneTimeTokenRepository

	tokenService TokenGenerator
	hasher       *security.PasswordHasher
	cache        SessionCache

	cfg *config.Config
	log zerolog.Logger
}

func NewAuthService(
	identities domain.IdentityRepository,
	sessions domain.SessionRepository,
	attempts domain.AttemptRepository,
	oneTime domain.OneTimeTokenRepository,
	tokenService TokenGenerator,
	hasher *security.PasswordHasher,
	cache SessionCache,
	cfg *config.Config,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		identities:   identities,
		sessions:     sessions,
		attempts:     attempts,
		oneTime:      oneTime,
		tokenService: tokenService,
		hasher:       hasher,
		cache:        cache,
		cfg:          cfg,
		log:          log.With().Str("kind", identities.Kind()).Logger(),
	}
}

// NormalizeEmail is applied before every comparison or store of an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) defaultRole() string {
	if s.identities.Kind() == constant.KindAdmin {
		return constant.RoleAdmin
	}
	return constant.RoleUser
}

func (s *AuthService) Register(ctx context.Context, input dto.RegisterInput) (*domain.Identity, error) {
	email := NormalizeEmail(input.Email)

	if len(input.Password) < constant.MinPasswordLength {
		return nil, autherror.ErrWeakPassword
	}

	existing, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherror.ErrEmailAlreadyInUse
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	identity := &domain.Identity{
		ID:           uuid.New().String(),
		Kind:         s.identities.Kind(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         s.defaultRole(),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, err
	}

	s.log.Info().Str("identity_id", identity.ID).Msg("identity registered")

	return identity, nil
}

// Login walks the attempt through rate check, credential lookup, password
// verify, the optional second factor and session creation. Every failure
// exit is one of the sentinel errors; the caller never learns which of
// email or password was wrong.
func (s *AuthService) Login(ctx context.Context, input dto.LoginInput) (*dto.TokenResponse, error) {
	email := NormalizeEmail(input.Email)
	kind := s.identities.Kind()

	failed, err := s.attempts.CountRecentFailed(ctx, kind, email, input.IPAddress, s.cfg.RateLimit.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to check login attempts: %w", err)
	}
	if failed >= s.cfg.RateLimit.MaxAttempts {
		return nil, autherror.ErrTooManyLoginAttempts
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if identity == nil {
		// Burn the same hashing cost as a real verification so unknown
		// addresses are not distinguishable by timing.
		s.hasher.VerifyDummy(input.Password)
		return nil, s.failAttempt(ctx, email, input.IPAddress, "")
	}

	if !s.hasher.Verify(identity.PasswordHash, input.Password) {
		return nil, s.failAttempt(ctx, email, input.IPAddress, identity.ID)
	}

	if !identity.Active {
		return nil, autherror.ErrAccountDisabled
	}

	if identity.TwoFactorEnabled {
		if input.TwoFactorCode == "" {
			return nil, autherror.ErrTwoFactorRequired
		}
		if !security.ValidateTOTPCode(input.TwoFactorCode, identity.TwoFactorSecret) {
			// Same class as a wrong password so callers cannot tell
			// which factor failed.
			return nil, s.failAttempt(ctx, email, input.IPAddress, identity.ID)
		}
	}

	session, err := s.createSession(ctx, identity, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	accessToken, refreshToken, _, err := s.tokenService.Generate(identity.ID, kind, identity.Email, identity.Role, session.ID)
	if err != nil {
		return nil, err
	}

	if err := s.identities.RecordLoginSuccess(ctx, identity.ID); err != nil {
		s.log.Warn().Err(err).Str("identity_id", identity.ID).Msg("record login success failed")
	}
	if err := s.attempts.Record(ctx, kind, email, input.IPAddress, true); err != nil {
		s.log.Warn().Err(err).Msg("record successful attempt failed")
	}

	s.log.Info().Str("identity_id", identity.ID).Str("session_id", session.ID).Msg("login succeeded")

	return s.tokenResponse(identity, session, accessToken, refreshToken), nil
}

func (s *AuthService) failAttempt(ctx context.Context, email, ip, identityID string) error {
	if err := s.attempts.Record(ctx, s.identities.Kind(), email, ip, false); err != nil {
		s.log.Warn().Err(err).Msg("record failed attempt failed")
	}
	if identityID != "" {
		if err := s.identities.IncrementFailedAttempts(ctx, identityID); err != nil {
			s.log.Warn().Err(err).Str("identity_id", identityID).Msg("increment failed attempts failed")
		}
	}
	return autherror.ErrInvalidCredentials
}

func (s *AuthService) createSession(ctx context.Context, identity *domain.Identity, ip, userAgent string) (*domain.Session, error) {
	id, err := security.NewSessionID(constant.SessionIDBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	session := &domain.Session{
		ID:         id,
		IdentityID: identity.ID,
		Kind:       s.identities.Kind(),
		IPAddress:  ip,
		UserAgent:  userAgent,
		Active:     true,
		ExpiresAt:  now.Add(s.cfg.Security.SessionTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("cache session failed")
	}

	return session, nil
}

// ValidateSession is the per-request check behind the middleware. Lazy
// cleanup: an expired row that is still flagged active gets marked
// inactive here; actual deletion is the sweep job's business.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Msg("session cache read failed")
	}
	if session == nil {
		session, err = s.sessions.Get(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, autherror.ErrSessionNotFound
		}
	}

	// Sessions of the other principal kind do not exist as far as this
	// service is concerned.
	if session.Kind != s.identities.Kind() {
		return nil, autherror.ErrSessionNotFound
	}

	if !session.Active {
		_ = s.cache.Delete(ctx, sessionID)
		return nil, autherror.ErrSessionExpired
	}

	if !time.Now().Before(session.ExpiresAt) {
		if err := s.sessions.MarkInactive(ctx, sessionID); err != nil {
			s.log.Warn().Err(err).Str("session_id", sessionID).Msg("lazy expire failed")
		}
		_ = s.cache.Delete(ctx, sessionID)
		return nil, autherror.ErrSessionExpired
	}

	// The read path never re-caches: a fill racing a concurrent logout
	// would resurrect the dead session. Only Login and Refresh write
	// the cache.
	return session, nil
}

// ValidateAccess verifies an access token and the session behind it,
// returning the authenticated identity.
func (s *AuthService) ValidateAccess(ctx context.Context, tokenString string) (*domain.Identity, *domain.Session, error) {
	claims, err := s.tokenService.Verify(tokenString, constant.TokenTypeAccess)
	if err != nil {
		return nil, nil, err
	}
	if claims.Kind != s.identities.Kind() {
		return nil, nil, autherror.ErrInvalidToken
	}

	session, err := s.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}

	identity, err := s.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	if identity == nil {
		return nil, nil, autherror.ErrIdentityNotFound
	}
	if !identity.Active {
		return nil, nil, autherror.ErrAccountDisabled
	}

	return identity, session, nil
}

// Refresh rotates the token pair. The session must still validate; its
// expiry slides forward so an actively refreshed client is never logged
// out mid-use.
func (s *AuthService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.TokenResponse, error) {
	claims, err := s.tokenService.Verify(input.RefreshToken, constant.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if claims.Kind != s.identities.Kind() {
		return nil, autherror.ErrInvalidToken
	}

	session, err := s.ValidateSession(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}

	identity, err := s.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, autherror.ErrIdentityNotFound
	}
	if !identity.Active {
		return nil, autherror.ErrAccountDisabled
	}

	accessToken, refreshToken, _, err := s.tokenService.Generate(identity.ID, s.identities.Kind(), identity.Email, identity.Role, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate new tokens: %w", err)
	}

	newExpiry := time.Now().Add(s.cfg.Security.SessionTTL)
	if err := s.sessions.Extend(ctx, session.ID, newExpiry); err != nil {
		return nil, fmt.Errorf("failed to extend session: %w", err)
	}
	session.ExpiresAt = newExpiry

	if err := s.cache.Set(ctx, session); err != nil {
		s.log.Warn().Err(err).Msg("cache session failed")
	}

	return s.tokenResponse(identity, session, accessToken, refreshToken), nil
}

// Logout is idempotent; logging out an already dead or unknown session
// succeeds quietly.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.MarkInactive(ctx, sessionID); err != nil {
		return err
	}
	return s.cache.Delete(ctx, sessionID)
}

// InvalidateAll kills every session owned by the identity. Used on
// password reset and by admin force-logout.
func (s *AuthService) InvalidateAll(ctx context.Context, identityID string) error {
	marked, err := s.sessions.MarkAllInactive(ctx, s.identities.Kind(), identityID)
	if err != nil {
		return err
	}

	// The cache purge covers exactly the rows the store deactivated, so
	// a session created mid-call cannot keep a live cache entry over a
	// dead row.
	for _, id := range marked {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.log.Warn().Err(err).Str("session_id", id).Msg("cache invalidation failed")
		}
	}

	return nil
}

// ChangePassword re-verifies the current password, then kills every other
// session so a stolen credential cannot outlive the change. The session
// making the call stays alive.
func (s *AuthService) ChangePassword(ctx context.Context, identityID, currentSessionID string, input dto.ChangePasswordInput) error {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		return err
	}
	if identity == nil {
		return autherror.ErrIdentityNotFound
	}

	if !s.hasher.Verify(identity.PasswordHash, input.CurrentPassword) {
		return autherror.ErrInvalidCredentials
	}

	if len(input.NewPassword) < constant.MinPasswordLength {
		return autherror.ErrWeakPassword
	}

	passwordHash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.identities.UpdatePassword(ctx, identityID, passwordHash); err != nil {
		return err
	}

	active, err := s.sessions.ListActive(ctx, s.identities.Kind(), identityID)
	if err != nil {
		return err
	}
	for _, session := range active {
		if session.ID == currentSessionID {
			continue
		}
		if err := s.sessions.MarkInactive(ctx, session.ID); err != nil {
			return err
		}
		if err := s.cache.Delete(ctx, session.ID); err != nil {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("cache invalidation failed")
		}
	}

	s.log.Info().Str("identity_id", identityID).Msg("password changed")

	return nil
}

func (s *AuthService) ListSessions(ctx context.Context, identityID string) ([]dto.SessionOutput, error) {
	active, err := s.sessions.ListActive(ctx, s.identities.Kind(), identityID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.SessionOutput, 0, len(active))
	for _, session := range active {
		out = append(out, dto.SessionOutput{
			ID:        session.ID,
			IPAddress: session.IPAddress,
			UserAgent: session.UserAgent,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		})
	}
	return out, nil
}

func (s *AuthService) tokenResponse(identity *domain.Identity, session *domain.Session, accessToken, refreshToken string) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    constant.DefaultTokenType,
		ExpiresIn:    int(s.tokenService.GetAccessTokenExpiry().Seconds()),
		SessionID:    session.ID,
		User:         IdentityOutput(identity),
	}
}

// IdentityOutput strips credential material for the HTTP layer.
func IdentityOutput(identity *domain.Identity) dto.IdentityOutput {
	clean := identity.Sanitized()
	return dto.IdentityOutput{
		ID:            clean.ID,
		Email:         clean.Email,
		Role:          clean.Role,
		Active:        clean.Active,
		EmailVerified: clean.EmailVerified,
		TwoFactor:     clean.TwoFactorEnabled,
		LastLoginAt:   clean.LastLoginAt,
		CreatedAt:     clean.CreatedAt,
	}
}
