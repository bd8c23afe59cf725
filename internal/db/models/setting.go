// Package models contains database model definitions.
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting represents an admin configurable key/value pair. Value holds any JSON document.
// Value is a text column, sqlite would store a bare JSON number as an integer.
type Setting struct {
	ID        uint64         `gorm:"primaryKey"                                json:"-"`
	Key       string         `gorm:"column:name;uniqueIndex;size:100;not null" json:"key"`
	Value     datatypes.JSON `gorm:"type:text"                                 json:"value"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
