package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/safrareport/auth-service/internal/auth/service TokenGenerator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherror "github.com/safrareport/auth-service/internal/errors"
	"github.com/safrareport/auth-service/pkg/constant"
)

type TokenGenerator interface {
	Generate(identityID, kind, email, role, sessionID string) (string, string, time.Time, error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	Verify(tokenString, expectedType string) (*JWTCustomClaims, error)
}

type TokenService struct {
	secret             []byte
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	Kind      string `json:"kind"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
	SessionID string `json:"sid"`
}

// NewTokenService refuses short secrets up front so a weak signing key is a
// startup failure, not a first-request surprise.
func NewTokenService(secret string, accessExpiry, refreshExpiry time.Duration) (*TokenService, error) {
	if len(secret) < constant.MinSecretBytes {
		return nil, fmt.Errorf("token secret must be at least %d bytes, got %d", constant.MinSecretBytes, len(secret))
	}
	return &TokenService{
		secret:             []byte(secret),
		AccessTokenExpiry:  accessExpiry,
		RefreshTokenExpiry: refreshExpiry,
	}, nil
}

// Generate returns an access/refresh pair bound to the same session.
func (ts *TokenService) Generate(identityID, kind, email, role, sessionID string) (string, string, time.Time, error) {
	now := time.Now()
	accessExpiresAt := now.Add(ts.AccessTokenExpiry)

	accessToken, err := ts.sign(identityID, kind, email, role, sessionID, constant.TokenTypeAccess, now, accessExpiresAt)
	if err != nil {
		return "", "", time.Time{}, err
	}

	refreshToken, err := ts.sign(identityID, kind, email, role, sessionID, constant.TokenTypeRefresh, now, now.Add(ts.RefreshTokenExpiry))
	if err != nil {
		return "", "", time.Time{}, err
	}

	return accessToken, refreshToken, accessExpiresAt, nil
}

func (ts *TokenService) sign(identityID, kind, email, role, sessionID, tokenType string, now, expiresAt time.Time) (string, error) {
	claims := JWTCustomClaims{
		Kind:      kind,
		Email:     email,
		Role:      role,
		TokenType: tokenType,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ts.secret)
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.RefreshTokenExpiry
}

// Verify parses and validates a token and checks the `type` claim against
// expectedType. Expiry comes back as ErrTokenExpired; every other failure,
// including a token of the wrong type or algorithm, is ErrInvalidToken.
func (ts *TokenService) Verify(tokenString, expectedType string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Only HMAC is ever accepted; no algorithm negotiation.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ts.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherror.ErrTokenExpired
		}
		return nil, autherror.ErrInvalidToken
	}

	if !token.Valid {
		return nil, autherror.ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		return nil, autherror.ErrInvalidToken
	}

	return claims, nil
}
