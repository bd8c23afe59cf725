package models

import (
	"time"

	"gorm.io/datatypes"
)

// MediaVariant is one stored rendition of an uploaded image.
type MediaVariant struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Key    string `json:"key"`
	URL    string `json:"url"`
	Size   int64  `json:"size"`
}

// Media is an uploaded image and the variants generated from it.
type Media struct {
	ID           uint64                            `gorm:"primaryKey"            json:"id"`
	Key          string                            `gorm:"size:255;uniqueIndex"  json:"key"`
	OriginalName string                            `gorm:"size:255"              json:"originalName"`
	ContentType  string                            `gorm:"size:64"               json:"contentType"`
	Width        int                               `json:"width"`
	Height       int                               `json:"height"`
	URL          string                            `gorm:"size:1000"             json:"url"`
	Variants     datatypes.JSONSlice[MediaVariant] `json:"variants"`
	UploadedBy   uint64                            `gorm:"index"                 json:"uploadedBy"`
	CreatedAt    time.Time                         `json:"createdAt"`
}

// TableName specifies the database table name for the Media model.
func (Media) TableName() string {
	return "media"
}
