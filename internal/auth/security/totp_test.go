package security

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTOTPSecret(t *testing.T) {
	secret, url, err := GenerateTOTPSecret("SafraReport", "user@x.do")
	require.NoError(t, err)

	assert.NotEmpty(t, secret)
	assert.Contains(t, url, "otpauth://totp/")
	assert.Contains(t, url, "SafraReport")
}

func TestValidateTOTPCode(t *testing.T) {
	secret, _, err := GenerateTOTPSecret("SafraReport", "user@x.do")
	require.NoError(t, err)

	now := time.Now()
	code, err := totp.GenerateCode(secret, now)
	require.NoError(t, err)

	assert.True(t, ValidateTOTPCode(code, secret))
	assert.False(t, ValidateTOTPCode("000000", secret))
	assert.False(t, ValidateTOTPCode("", secret))
	assert.False(t, ValidateTOTPCode(code, "JBSWY3DPEHPK3PXP")) // different secret
}

func TestValidateTOTPCode_SkewWindow(t *testing.T) {
	secret, _, err := GenerateTOTPSecret("SafraReport", "user@x.do")
	require.NoError(t, err)

	fixed := time.Date(2026, 8, 1, 12, 0, 15, 0, time.UTC)
	origNow := timeNow
	timeNow = func() time.Time { return fixed }
	defer func() { timeNow = origNow }()

	previous, err := totp.GenerateCode(secret, fixed.Add(-30*time.Second))
	require.NoError(t, err)
	stale, err := totp.GenerateCode(secret, fixed.Add(-5*time.Minute))
	require.NoError(t, err)

	// One period either side is tolerated; anything older is not.
	assert.True(t, ValidateTOTPCode(previous, secret))
	assert.False(t, ValidateTOTPCode(stale, secret))
}
