// Package analytics stores analytics events and computes the aggregates shown on the admin dashboard.
package analytics

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/models"
)

const (
	// DefaultTop is the number of rows returned by ranking queries when no limit is given.
	DefaultTop = 10
	// MaxTop is the largest accepted ranking limit.
	MaxTop = 100
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrInvalidRange is returned when the range end is before its start.
	ErrInvalidRange = errors.New("invalid time range")
)

// Range is a half open time window [From, To).
type Range struct {
	From time.Time
	To   time.Time
}

// LastDays returns the window covering the days before now.
func LastDays(now time.Time, days int) Range {
	if days < 1 {
		days = 1
	}

	return Range{From: now.AddDate(0, 0, -days), To: now}
}

func (r Range) validate() error {
	if r.To.Before(r.From) {
		return ErrInvalidRange
	}

	return nil
}

// Count is a labelled number.
type Count struct {
	Key   string `gorm:"column:label" json:"key"`
	Count int64  `json:"count"`
}

// Summary holds the headline numbers of a window.
type Summary struct {
	Pageviews      int64   `json:"pageviews"`
	UniqueSessions int64   `json:"uniqueSessions"`
	Events         int64   `json:"events"`
	ByKind         []Count `json:"byKind"`
}

// DailyCount is the number of pageviews of one day.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Devices breaks pageviews down by device class, browser and operating system.
type Devices struct {
	Devices  []Count `json:"devices"`
	Browsers []Count `json:"browsers"`
	OS       []Count `json:"os"`
}

// Insert appends an event.
func Insert(db *gorm.DB, event *models.AnalyticsEvent) error {
	if db == nil {
		return ErrDBNil
	}

	return db.Create(event).Error
}

func window(db *gorm.DB, r Range) *gorm.DB {
	return db.Model(&models.AnalyticsEvent{}).
		Where("created_at >= ? AND created_at < ?", r.From, r.To)
}

func clampTop(limit int) int {
	if limit < 1 {
		return DefaultTop
	}

	if limit > MaxTop {
		return MaxTop
	}

	return limit
}

// GetSummary returns pageviews, unique sessions and events per kind in r.
func GetSummary(db *gorm.DB, r Range) (*Summary, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	s := &Summary{ByKind: []Count{}}

	if err := window(db, r).Where("kind = ?", models.EventKindPageview).Count(&s.Pageviews).Error; err != nil {
		return nil, err
	}

	if err := window(db, r).Distinct("session_id").Count(&s.UniqueSessions).Error; err != nil {
		return nil, err
	}

	if err := window(db, r).Count(&s.Events).Error; err != nil {
		return nil, err
	}

	err := window(db, r).
		Select("kind AS label, COUNT(*) AS count").
		Group("kind").
		Order("count DESC").
		Scan(&s.ByKind).Error
	if err != nil {
		return nil, err
	}

	return s, nil
}

func groupCount(db *gorm.DB, r Range, column string, limit int, extra func(*gorm.DB) *gorm.DB) ([]Count, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	q := window(db, r)
	if extra != nil {
		q = extra(q)
	}

	out := []Count{}

	err := q.Select(column + " AS label, COUNT(*) AS count").
		Group(column).
		Order("count DESC, " + column).
		Limit(clampTop(limit)).
		Scan(&out).Error

	return out, err
}

func pageviews(q *gorm.DB) *gorm.DB {
	return q.Where("kind = ?", models.EventKindPageview)
}

// TopPaths returns the most viewed paths in r.
func TopPaths(db *gorm.DB, r Range, limit int) ([]Count, error) {
	return groupCount(db, r, "path", limit, pageviews)
}

// Referrers returns the most frequent non-empty referrers of pageviews in r.
func Referrers(db *gorm.DB, r Range, limit int) ([]Count, error) {
	return groupCount(db, r, "referrer", limit, func(q *gorm.DB) *gorm.DB {
		return pageviews(q).Where("referrer <> ''")
	})
}

// Tools returns the most used tools in r.
func Tools(db *gorm.DB, r Range, limit int) ([]Count, error) {
	return groupCount(db, r, "tool_name", limit, func(q *gorm.DB) *gorm.DB {
		return q.Where("kind = ? AND tool_name IS NOT NULL", models.EventKindToolUse)
	})
}

// GetDevices returns the device, browser and OS breakdown of pageviews in r.
func GetDevices(db *gorm.DB, r Range, limit int) (*Devices, error) {
	devices, err := groupCount(db, r, "device", limit, pageviews)
	if err != nil {
		return nil, err
	}

	browsers, err := groupCount(db, r, "browser", limit, pageviews)
	if err != nil {
		return nil, err
	}

	systems, err := groupCount(db, r, "os", limit, pageviews)
	if err != nil {
		return nil, err
	}

	return &Devices{Devices: devices, Browsers: browsers, OS: systems}, nil
}

// Daily returns the pageviews per UTC day in r. Days without pageviews are included with zero.
func Daily(db *gorm.DB, r Range) ([]DailyCount, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if err := r.validate(); err != nil {
		return nil, err
	}

	var stamps []time.Time

	err := pageviews(window(db, r)).Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{}
	for _, ts := range stamps {
		counts[ts.UTC().Format(time.DateOnly)]++
	}

	out := []DailyCount{}

	start := r.From.UTC().Truncate(24 * time.Hour)
	for day := start; day.Before(r.To); day = day.AddDate(0, 0, 1) {
		key := day.Format(time.DateOnly)
		out = append(out, DailyCount{Day: key, Count: counts[key]})
	}

	return out, nil
}
