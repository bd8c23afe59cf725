package auth

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/db/models"
)

func TestTOTPFlow(t *testing.T) {
	p := newTestProvider(t)

	user, err := p.CreateUser("2fa@example.com", "password-2fa", "", models.RoleAdmin)
	require.NoError(t, err)

	require.ErrorIs(t, p.EnableTOTP(user.ID, "123456"), ErrTOTPNotSetUp)

	setup, err := p.SetupTOTP(user.ID, "Inkpress")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.URL, "otpauth://totp/")
	assert.Contains(t, setup.URL, "issuer=Inkpress")

	// not enabled yet, login works without code
	_, err = p.Authenticate("2fa@example.com", "password-2fa", "")
	require.NoError(t, err)

	require.ErrorIs(t, p.EnableTOTP(user.ID, "000000"), ErrInvalidOTP)

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, p.EnableTOTP(user.ID, code))

	_, err = p.SetupTOTP(user.ID, "Inkpress")
	require.ErrorIs(t, err, ErrTOTPAlreadyEnabled)

	_, err = p.Authenticate("2fa@example.com", "password-2fa", "")
	require.ErrorIs(t, err, ErrOTPRequired)

	_, err = p.Authenticate("2fa@example.com", "password-2fa", "000000")
	require.ErrorIs(t, err, ErrInvalidOTP)

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	_, err = p.Authenticate("2fa@example.com", "password-2fa", code)
	require.NoError(t, err)

	require.ErrorIs(t, p.DisableTOTP(user.ID, "wrong"), ErrInvalidCredentials)
	require.NoError(t, p.DisableTOTP(user.ID, "password-2fa"))

	_, err = p.Authenticate("2fa@example.com", "password-2fa", "")
	require.NoError(t, err)
}

func TestValidateOTPEmptySecret(t *testing.T) {
	assert.False(t, ValidateOTP("123456", ""))
}
