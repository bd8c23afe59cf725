// Package post provides database operations for posts, including the
// guarded state transition used by the scheduled publication sweep.
package post

import (
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/models"
)

const (
	// DefaultLimit is the page size used when none is requested.
	DefaultLimit = 20
	// MaxLimit is the largest accepted page size.
	MaxLimit = 100

	// dueCondition selects posts whose scheduled release time has passed.
	dueCondition = "published = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?"
)

var (
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrPostNotFound is returned when a post does not exist.
	ErrPostNotFound = errors.New("post not found")
	// ErrSlugTaken is returned when another post already uses the slug in the same language.
	ErrSlugTaken = errors.New("slug already exists for this language")
	// ErrInvalidStatus is returned for an unknown status filter.
	ErrInvalidStatus = errors.New("invalid post status")
	// ErrGroupEmpty is returned when a translation group lookup has no group id.
	ErrGroupEmpty = errors.New("translation group cannot be empty")
	// ErrPostChanged is returned when the publication state of a post changed
	// between reading and saving it.
	ErrPostChanged = errors.New("post was published or unpublished meanwhile")
)

// Filter narrows a post listing.
type Filter struct {
	Language      string
	Tag           string
	Query         string
	Status        models.PostState
	PublishedOnly bool
	Page          int
	Limit         int
}

// Page is one page of a post listing.
type Page struct {
	Items []models.Post `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// TagCount is a tag and the number of posts carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// ApplyState normalises the publication fields of p.
// A published post gets a PublishedAt (kept when already set) and loses its schedule,
// an unpublished post has no PublishedAt.
func ApplyState(p *models.Post, now time.Time) {
	if p.Published {
		if p.PublishedAt == nil {
			t := now
			p.PublishedAt = &t
		}

		p.ScheduledAt = nil

		return
	}

	p.PublishedAt = nil
}

func normalisePaging(f *Filter) {
	if f.Page < 1 {
		f.Page = 1
	}

	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}

	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
}

func applyFilter(q *gorm.DB, f Filter) (*gorm.DB, error) {
	if f.PublishedOnly {
		q = q.Where("published = ?", true)
	}

	switch f.Status {
	case "":
	case models.PostStateDraft:
		q = q.Where("published = ? AND scheduled_at IS NULL", false)
	case models.PostStateScheduled:
		q = q.Where("published = ? AND scheduled_at IS NOT NULL", false)
	case models.PostStatePublished:
		q = q.Where("published = ?", true)
	default:
		return nil, ErrInvalidStatus
	}

	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}

	if f.Tag != "" {
		q = q.Where(datatypes.JSONArrayQuery("tags").Contains(f.Tag))
	}

	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(body) LIKE ?", like, like, like)
	}

	return q, nil
}

// List returns one page of posts matching f.
// Public listings are ordered by publication time, admin listings by last update.
func List(db *gorm.DB, f Filter) (*Page, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	normalisePaging(&f)

	q, err := applyFilter(db.Model(&models.Post{}), f)
	if err != nil {
		return nil, err
	}

	page := &Page{Items: []models.Post{}, Page: f.Page, Limit: f.Limit}

	if err = q.Count(&page.Total).Error; err != nil {
		return nil, err
	}

	order := "updated_at DESC, id DESC"
	if f.PublishedOnly {
		order = "published_at DESC, id DESC"
	}

	err = q.Order(order).
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&page.Items).Error
	if err != nil {
		return nil, err
	}

	return page, nil
}

// GetByID retrieves a post by its id.
func GetByID(db *gorm.DB, id uint64) (*models.Post, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var p models.Post

	if err := db.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}

		return nil, err
	}

	return &p, nil
}

// GetBySlug retrieves a post by language and slug.
func GetBySlug(db *gorm.DB, language, slug string, publishedOnly bool) (*models.Post, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	q := db.Where("language = ? AND slug = ?", language, slug)
	if publishedOnly {
		q = q.Where("published = ?", true)
	}

	var p models.Post

	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}

		return nil, err
	}

	return &p, nil
}

func slugTaken(db *gorm.DB, p *models.Post) (bool, error) {
	var count int64

	err := db.Model(&models.Post{}).
		Where("language = ? AND slug = ? AND id <> ?", p.Language, p.Slug, p.ID).
		Count(&count).Error

	return count > 0, err
}

func translateWriteError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlugTaken
	}

	return err
}

// Create inserts p after normalising its publication state.
func Create(db *gorm.DB, p *models.Post, now time.Time) error {
	if db == nil {
		return ErrDBNil
	}

	taken, err := slugTaken(db, p)
	if err != nil {
		return err
	}

	if taken {
		return ErrSlugTaken
	}

	ApplyState(p, now)

	return translateWriteError(db.Create(p).Error)
}

// Update saves every field of an existing post after normalising its publication state.
// The write only matches while the stored post is still in the published state
// wasPublished, so an edit can not undo a concurrent sweep or unpublish.
func Update(db *gorm.DB, p *models.Post, wasPublished bool, now time.Time) error {
	if db == nil {
		return ErrDBNil
	}

	if p.ID == 0 {
		return ErrPostNotFound
	}

	taken, err := slugTaken(db, p)
	if err != nil {
		return err
	}

	if taken {
		return ErrSlugTaken
	}

	ApplyState(p, now)
	p.UpdatedAt = now

	result := db.Model(p).
		Where("published = ?", wasPublished).
		Select("*").
		Updates(p)
	if result.Error != nil {
		return translateWriteError(result.Error)
	}

	if result.RowsAffected == 1 {
		return nil
	}

	// mysql reports unchanged rows as not affected
	stored, err := GetByID(db, p.ID)
	if err != nil {
		return err
	}

	if stored.Published != wasPublished {
		return ErrPostChanged
	}

	return nil
}

// Delete removes a post and returns the deleted row.
func Delete(db *gorm.DB, id uint64) (*models.Post, error) {
	p, err := GetByID(db, id)
	if err != nil {
		return nil, err
	}

	result := db.Delete(&models.Post{}, id)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		return nil, ErrPostNotFound
	}

	return p, nil
}

// Publish makes a post visible immediately and clears its schedule.
func Publish(db *gorm.DB, id uint64, now time.Time) (*models.Post, error) {
	p, err := GetByID(db, id)
	if err != nil {
		return nil, err
	}

	if p.Published {
		return p, nil
	}

	p.Published = true

	if err = Update(db, p, false, now); err != nil {
		return nil, err
	}

	return p, nil
}

// Unpublish turns a post back into a draft.
func Unpublish(db *gorm.DB, id uint64, now time.Time) (*models.Post, error) {
	p, err := GetByID(db, id)
	if err != nil {
		return nil, err
	}

	wasPublished := p.Published
	p.Published = false
	p.ScheduledAt = nil

	if err = Update(db, p, wasPublished, now); err != nil {
		return nil, err
	}

	return p, nil
}

// Translations returns every post of a translation group ordered by language,
// leaving out excludeID when it is not zero.
func Translations(db *gorm.DB, group string, excludeID uint64, publishedOnly bool) ([]models.Post, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if group == "" {
		return nil, ErrGroupEmpty
	}

	q := db.Where("translation_group = ?", group)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	if publishedOnly {
		q = q.Where("published = ?", true)
	}

	posts := []models.Post{}
	if err := q.Order("language").Find(&posts).Error; err != nil {
		return nil, err
	}

	return posts, nil
}

// Tags returns the distinct tags of published posts with their usage count,
// most used first.
func Tags(db *gorm.DB, language string) ([]TagCount, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	q := db.Model(&models.Post{}).Where("published = ?", true)
	if language != "" {
		q = q.Where("language = ?", language)
	}

	var rows []models.Post
	if err := q.Select("tags").Find(&rows).Error; err != nil {
		return nil, err
	}

	counts := map[string]int{}

	for _, row := range rows {
		for _, tag := range row.Tags {
			counts[tag]++
		}
	}

	out := make([]TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, TagCount{Tag: tag, Count: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Tag < out[j].Tag
	})

	return out, nil
}

// FindDue returns every unpublished post whose ScheduledAt is not after now.
func FindDue(db *gorm.DB, now time.Time) ([]models.Post, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var posts []models.Post

	err := db.Where(dueCondition, false, now).
		Order("scheduled_at, id").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	return posts, nil
}

// MarkPublished flips a due post to published. The update only matches while the
// post is still due, so of several concurrent callers exactly one gets true.
func MarkPublished(db *gorm.DB, id uint64, now time.Time) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	result := db.Model(&models.Post{}).
		Where("id = ?", id).
		Where(dueCondition, false, now).
		Updates(map[string]any{
			"published":    true,
			"published_at": now,
			"scheduled_at": nil,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

// Stats counts posts per publication state and language.
type Stats struct {
	Draft      int64           `json:"draft"`
	Scheduled  int64           `json:"scheduled"`
	Published  int64           `json:"published"`
	Total      int64           `json:"total"`
	ByLanguage []LanguageCount `json:"byLanguage"`
}

// LanguageCount is a language and the number of posts written in it.
type LanguageCount struct {
	Language string `json:"language"`
	Count    int64  `json:"count"`
}

// GetStats returns the number of posts in every state and per language.
func GetStats(db *gorm.DB) (*Stats, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	s := &Stats{ByLanguage: []LanguageCount{}}

	for state, dst := range map[models.PostState]*int64{
		models.PostStateDraft:     &s.Draft,
		models.PostStateScheduled: &s.Scheduled,
		models.PostStatePublished: &s.Published,
	} {
		q, err := applyFilter(db.Model(&models.Post{}), Filter{Status: state})
		if err != nil {
			return nil, err
		}

		if err = q.Count(dst).Error; err != nil {
			return nil, err
		}
	}

	s.Total = s.Draft + s.Scheduled + s.Published

	err := db.Model(&models.Post{}).
		Select("language, COUNT(*) AS count").
		Group("language").
		Order("language").
		Scan(&s.ByLanguage).Error
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Upcoming returns the next scheduled posts that are not yet due, soonest first.
func Upcoming(db *gorm.DB, now time.Time, limit int) ([]models.Post, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}

	posts := []models.Post{}

	err := db.Where("published = ? AND scheduled_at > ?", false, now).
		Order("scheduled_at, id").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	return posts, nil
}
