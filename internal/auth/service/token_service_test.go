package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherror "github.com/safrareport/auth-service/internal/errors"
	"github.com/safrareport/auth-service/pkg/constant"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 bytes

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		secret      string
		expectError bool
	}{
		{
			name:   "valid secret",
			secret: testSecret,
		},
		{
			name:   "long secret",
			secret: strings.Repeat("s", 64),
		},
		{
			name:        "empty secret",
			secret:      "",
			expectError: true,
		},
		{
			name:        "short secret",
			secret:      "only-31-bytes-aaaaaaaaaaaaaaaaa",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := NewTokenService(tt.secret, 15*time.Minute, 7*24*time.Hour)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, ts)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 15*time.Minute, ts.GetAccessTokenExpiry())
			assert.Equal(t, 7*24*time.Hour, ts.GetRefreshTokenExpiry())
		})
	}
}

func TestTokenService_GenerateAndVerify(t *testing.T) {
	ts, err := NewTokenService(testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	accessToken, refreshToken, expiresAt, err := ts.Generate("identity-1", constant.KindUser, "user@x.do", constant.RoleUser, "session-1")
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	t.Run("access claims round trip", func(t *testing.T) {
		claims, err := ts.Verify(accessToken, constant.TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, "identity-1", claims.Subject)
		assert.Equal(t, constant.KindUser, claims.Kind)
		assert.Equal(t, "user@x.do", claims.Email)
		assert.Equal(t, constant.RoleUser, claims.Role)
		assert.Equal(t, constant.TokenTypeAccess, claims.TokenType)
		assert.Equal(t, "session-1", claims.SessionID)
	})

	t.Run("refresh claims round trip", func(t *testing.T) {
		claims, err := ts.Verify(refreshToken, constant.TokenTypeRefresh)
		require.NoError(t, err)
		assert.Equal(t, constant.TokenTypeRefresh, claims.TokenType)
		assert.Equal(t, "session-1", claims.SessionID)
	})

	t.Run("type mismatch is invalid, not expired", func(t *testing.T) {
		_, err := ts.Verify(accessToken, constant.TokenTypeRefresh)
		assert.ErrorIs(t, err, autherror.ErrInvalidToken)

		_, err = ts.Verify(refreshToken, constant.TokenTypeAccess)
		assert.ErrorIs(t, err, autherror.ErrInvalidToken)
	})
}

func TestTokenService_VerifyExpired(t *testing.T) {
	ts, err := NewTokenService(testSecret, -time.Minute, -time.Minute)
	require.NoError(t, err)

	accessToken, _, _, err := ts.Generate("identity-1", constant.KindUser, "user@x.do", constant.RoleUser, "session-1")
	require.NoError(t, err)

	_, err = ts.Verify(accessToken, constant.TokenTypeAccess)
	assert.ErrorIs(t, err, autherror.ErrTokenExpired)
	assert.NotErrorIs(t, err, autherror.ErrInvalidToken)
}

func TestTokenService_VerifyTampered(t *testing.T) {
	ts, err := NewTokenService(testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	accessToken, _, _, err := ts.Generate("identity-1", constant.KindUser, "user@x.do", constant.RoleUser, "session-1")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := ts.Verify("not.a.token", constant.TokenTypeAccess)
		assert.ErrorIs(t, err, autherror.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService(strings.Repeat("x", 32), 15*time.Minute, time.Hour)
		require.NoError(t, err)

		_, err = other.Verify(accessToken, constant.TokenTypeAccess)
		assert.ErrorIs(t, err, autherror.ErrInvalidToken)
	})

	t.Run("flipped payload byte", func(t *testing.T) {
		parts := strings.Split(accessToken, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1][:len(parts[1])-2] + "AA." + parts[2]

		_, err := ts.Verify(tampered, constant.TokenTypeAccess)
		assert.ErrorIs(t, err, autherror.ErrInvalidToken)
	})
}

// A token signed with "none" or any non-HMAC algorithm must be rejected
// even if it carries plausible claims.
func TestTokenService_RejectsWrongAlgorithm(t *testing.T) {
	ts, err := NewTokenService(testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)

	claims := JWTCustomClaims{
		Kind:      constant.KindUser,
		TokenType: constant.TokenTypeAccess,
		SessionID: "session-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "identity-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ts.Verify(unsigned, constant.TokenTypeAccess)
	assert.ErrorIs(t, err, autherror.ErrInvalidToken)
}
