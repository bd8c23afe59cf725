package auth

import "errors"

var (
	// ErrJWTSecretEmpty is returned when the JWT manager is created without a secret.
	ErrJWTSecretEmpty = errors.New("jwt secret is empty")

	// ErrInvalidToken is returned when a token can not be parsed, is expired or carries unexpected claims.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrEmailExists is returned when attempting to create a user with an email that already exists.
	ErrEmailExists = errors.New("user with email already exists")

	// ErrUserAccountDisabled is returned when attempting to authenticate a disabled user account.
	ErrUserAccountDisabled = errors.New("user account is disabled")

	// ErrInvalidCredentials is returned when email or password are wrong.
	// Both cases share one error so a caller can not probe for registered emails.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when a user cannot be found in the database.
	ErrUserNotFound = errors.New("user not found")

	// ErrPasswordTooShort is returned when a new password is shorter than MinPasswordLen.
	ErrPasswordTooShort = errors.New("password is too short")

	// ErrInvalidRole is returned for a role other than admin or editor.
	ErrInvalidRole = errors.New("invalid role")

	// ErrOTPRequired is returned by a login without code for a user with TOTP enabled.
	ErrOTPRequired = errors.New("one time code required")

	// ErrInvalidOTP is returned when a one time code does not verify.
	ErrInvalidOTP = errors.New("invalid one time code")

	// ErrTOTPNotSetUp is returned when enabling TOTP before a secret was generated.
	ErrTOTPNotSetUp = errors.New("totp is not set up")

	// ErrTOTPAlreadyEnabled is returned when setting up TOTP for a user who already uses it.
	ErrTOTPAlreadyEnabled = errors.New("totp is already enabled")
)
