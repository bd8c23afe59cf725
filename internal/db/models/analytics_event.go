package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event kinds accepted by the analytics collector.
const (
	EventKindPageview = "pageview"
	EventKindEvent    = "event"
	EventKindToolUse  = "tool_use"
	EventKindClick    = "click"
	EventKindShare    = "share"
)

// Device classes derived from the user agent.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// AnalyticsEvent is an append only record of a tracked interaction.
type AnalyticsEvent struct {
	ID        uint64         `gorm:"primaryKey"             json:"id"`
	SessionID string         `gorm:"size:64;not null;index" json:"sessionId"`
	UserHash  *string        `gorm:"size:128"               json:"userHash,omitempty"`
	Path      string         `gorm:"size:500;not null;index" json:"path"`
	Kind      string         `gorm:"size:32;not null;index" json:"kind"`
	Referrer  string         `gorm:"size:500"               json:"referrer,omitempty"`
	Device    string         `gorm:"size:16"                json:"device"`
	Browser   string         `gorm:"size:64"                json:"browser"`
	OS        string         `gorm:"size:64"                json:"os"`
	ToolName  *string        `gorm:"size:100;index"         json:"toolName,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:text"                json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index"                  json:"createdAt"`
}
