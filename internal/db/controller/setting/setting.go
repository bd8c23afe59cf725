// Package setting provides CRUD operations for admin configurable key/value settings.
package setting

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/inkpress/inkpress/internal/db/models"
)

const (
	keyQueryPattern = "name = ?"

	// MaxKeyLen is the longest accepted setting key.
	MaxKeyLen = 100
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingKeyEmpty is returned when attempting to read or write a setting with an empty key.
	ErrSettingKeyEmpty = errors.New("setting key cannot be empty")
	// ErrSettingKeyTooLong is returned when the key exceeds MaxKeyLen.
	ErrSettingKeyTooLong = errors.New("setting key is too long")
	// ErrSettingValueInvalid is returned when the value is not a JSON document.
	ErrSettingValueInvalid = errors.New("setting value must be valid json")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

func checkKey(key string) error {
	if key == "" {
		return ErrSettingKeyEmpty
	}

	if len(key) > MaxKeyLen {
		return ErrSettingKeyTooLong
	}

	return nil
}

// Get retrieves a setting by its key.
func Get(db *gorm.DB, key string) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if err := checkKey(key); err != nil {
		return nil, err
	}

	var setting models.Setting

	result := db.Where(keyQueryPattern, key).First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, result.Error
	}

	return &setting, nil
}

// GetAll retrieves all settings ordered by key.
func GetAll(db *gorm.DB) ([]models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var settings []models.Setting

	result := db.Order("name").Find(&settings)
	if result.Error != nil {
		return nil, result.Error
	}

	return settings, nil
}

// Set creates or replaces a setting by key (upsert). No history is kept.
func Set(db *gorm.DB, key string, value datatypes.JSON) (*models.Setting, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if err := checkKey(key); err != nil {
		return nil, err
	}

	if !isJSON(value) {
		return nil, ErrSettingValueInvalid
	}

	setting := &models.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting)
	if result.Error != nil {
		return nil, result.Error
	}

	// the returned row carries the id of an already existing setting
	return Get(db, key)
}

// Delete deletes a setting by key.
func Delete(db *gorm.DB, key string) error {
	if db == nil {
		return ErrDBNil
	}

	if err := checkKey(key); err != nil {
		return err
	}

	result := db.Where(keyQueryPattern, key).Delete(&models.Setting{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}

	return nil
}

func isJSON(value datatypes.JSON) bool {
	if len(value) == 0 {
		return false
	}

	var probe any

	return json.Unmarshal(value, &probe) == nil
}
