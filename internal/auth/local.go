package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/models"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 8

// LocalProvider handles local database authentication.
type LocalProvider struct {
	db  *gorm.DB
	now func() time.Time
}

const whereID = "id = ?"

// NewLocalProvider creates a new local authentication provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db:  db,
		now: time.Now,
	}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks email, password and, when enabled, the one time code of a user.
func (p *LocalProvider) Authenticate(email, password, otpCode string) (*models.User, error) {
	var user models.User

	err := p.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !user.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// Check if user is active
	if !user.Active {
		return nil, ErrUserAccountDisabled
	}

	if user.TOTPEnabled {
		if otpCode == "" {
			return nil, ErrOTPRequired
		}

		if !ValidateOTP(otpCode, user.TOTPSecret) {
			return nil, ErrInvalidOTP
		}
	}

	now := p.now().UTC()
	user.LastLoginAt = &now

	if err = p.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return &user, nil
}

// CountUsers returns the number of accounts.
func (p *LocalProvider) CountUsers() (int64, error) {
	var count int64

	err := p.db.Model(&models.User{}).Count(&count).Error

	return count, err
}

// CreateUser creates a new local user.
func (p *LocalProvider) CreateUser(email, password, displayName string, role models.Role) (*models.User, error) {
	email = NormalizeEmail(email)

	if role != models.RoleAdmin && role != models.RoleEditor {
		return nil, ErrInvalidRole
	}

	if len(password) < MinPasswordLen {
		return nil, ErrPasswordTooShort
	}

	// Check if user already exists
	var existingUser models.User

	err := p.db.Where("email = ?", email).First(&existingUser).Error
	if err == nil {
		return nil, ErrEmailExists
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashedPassword, err := models.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Active:      true,
		Email:       email,
		Password:    hashedPassword,
		DisplayName: displayName,
		Role:        role,
	}

	if err := p.db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// ChangePassword changes a user's password.
func (p *LocalProvider) ChangePassword(userID uint64, oldPassword, newPassword string) error {
	user, err := p.GetUserByID(userID)
	if err != nil {
		return err
	}

	// Verify old password
	if !user.VerifyPassword(oldPassword) {
		return ErrInvalidOldPassword
	}

	if len(newPassword) < MinPasswordLen {
		return ErrPasswordTooShort
	}

	hashedPassword, err := models.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("password", hashedPassword).Error
}

// SetActive activates or deactivates a user account.
func (p *LocalProvider) SetActive(userID uint64, active bool) error {
	result := p.db.Model(&models.User{}).
		Where(whereID, userID).
		Update("active", active)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetUserByID retrieves a user by ID.
func (p *LocalProvider) GetUserByID(userID uint64) (*models.User, error) {
	var user models.User
	if err := p.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (p *LocalProvider) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := p.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &user, nil
}

// ListUsers lists users ordered by email with optional filters.
func (p *LocalProvider) ListUsers(role models.Role, active *bool, limit, offset int) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)

	query := p.db.Model(&models.User{})

	if role != "" {
		query = query.Where("role = ?", role)
	}

	if active != nil {
		query = query.Where("active = ?", *active)
	}

	// Get total count
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Get paginated results
	if err := query.Order("email").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// DeleteUser removes an account.
func (p *LocalProvider) DeleteUser(userID uint64) error {
	result := p.db.Delete(&models.User{}, userID)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}
