// Package media provides database operations for uploaded images.
package media

import (
	"errors"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/models"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrMediaNotFound is returned when a media row does not exist.
	ErrMediaNotFound = errors.New("media not found")
)

// Page is one page of media rows, newest first.
type Page struct {
	Items []models.Media `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

// Create inserts a media row.
func Create(db *gorm.DB, m *models.Media) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Create(m).Error
}

// Get retrieves a media row by id.
func Get(db *gorm.DB, id uint64) (*models.Media, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var m models.Media

	if err := db.First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMediaNotFound
		}

		return nil, err
	}

	return &m, nil
}

// List returns one page of media rows.
func List(db *gorm.DB, page, limit int) (*Page, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if page < 1 {
		page = 1
	}

	if limit < 1 || limit > 100 {
		limit = 50
	}

	out := &Page{Items: []models.Media{}, Page: page, Limit: limit}

	if err := db.Model(&models.Media{}).Count(&out.Total).Error; err != nil {
		return nil, err
	}

	err := db.Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out.Items).Error
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Delete removes a media row by id.
func Delete(db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	result := db.Delete(&models.Media{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrMediaNotFound
	}

	return nil
}

// Count returns the number of stored media rows.
func Count(db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var n int64

	if err := db.Model(&models.Media{}).Count(&n).Error; err != nil {
		return 0, err
	}

	return n, nil
}
