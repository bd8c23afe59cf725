package auth

import (
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/inkpress/inkpress/internal/db/models"
)

// TOTPSetup is returned when a second factor is prepared for a user.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// ValidateOTP checks a one time code against a base32 secret.
func ValidateOTP(code, secret string) bool {
	if secret == "" {
		return false
	}

	return totp.Validate(code, secret)
}

// SetupTOTP generates and stores a new secret for the user. The second factor stays
// disabled until EnableTOTP confirms a code generated from the secret.
func (p *LocalProvider) SetupTOTP(userID uint64, issuer string) (*TOTPSetup, error) {
	user, err := p.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if user.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	if err = p.db.Model(&models.User{}).Where(whereID, userID).Update("totp_secret", key.Secret()).Error; err != nil {
		return nil, fmt.Errorf("failed to store totp secret: %w", err)
	}

	return &TOTPSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

// EnableTOTP turns on the second factor after verifying a code.
func (p *LocalProvider) EnableTOTP(userID uint64, code string) error {
	user, err := p.GetUserByID(userID)
	if err != nil {
		return err
	}

	if user.TOTPSecret == "" {
		return ErrTOTPNotSetUp
	}

	if !ValidateOTP(code, user.TOTPSecret) {
		return ErrInvalidOTP
	}

	return p.db.Model(&models.User{}).Where(whereID, userID).Update("totp_enabled", true).Error
}

// DisableTOTP turns off the second factor after verifying the password and drops the secret.
func (p *LocalProvider) DisableTOTP(userID uint64, password string) error {
	user, err := p.GetUserByID(userID)
	if err != nil {
		return err
	}

	if !user.VerifyPassword(password) {
		return ErrInvalidCredentials
	}

	return p.db.Model(&models.User{}).Where(whereID, userID).Updates(map[string]any{
		"totp_enabled": false,
		"totp_secret":  "",
	}).Error
}
