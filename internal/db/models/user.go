package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// Role is the authorization role of a user.
type Role string

const (
	// RoleAdmin may manage users, settings, analytics and all content.
	RoleAdmin Role = "admin"
	// RoleEditor may manage content and uploads.
	RoleEditor Role = "editor"
)

// User represents an administrator or editor account.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Email is the unique login name of the user.
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	// Password is the Argon2id hashed password.
	Password string `gorm:"size:255;not null" json:"-"`
	// DisplayName is shown as post author and in the admin UI.
	DisplayName string `gorm:"size:200" json:"displayName"`
	// Role decides which admin endpoints the user may call.
	Role Role `gorm:"type:varchar(20);not null;default:'editor'" json:"role"`
	// Active indicates whether the user may log in.
	Active bool `gorm:"not null;default:true" json:"active"`
	// TOTPSecret is the base32 secret of the second factor (empty when never set up).
	TOTPSecret string `gorm:"size:64" json:"-"`
	// TOTPEnabled requires a valid one time code at login.
	TOTPEnabled bool `gorm:"not null;default:false" json:"totpEnabled"`
	// LastLoginAt is updated on every successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updatedAt"`
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams) //nolint:wrapcheck
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// It uses constant-time comparison to prevent timing attacks.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to verify password")
		return false
	}

	return match
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// All returns every model that is migrated by AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Post{},
		&Setting{},
		&AnalyticsEvent{},
		&Media{},
	}
}
