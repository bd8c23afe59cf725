package models

import (
	"time"

	"gorm.io/datatypes"
)

// PostState is the publication state derived from Published and ScheduledAt.
type PostState string

const (
	// PostStateDraft is an unpublished post without a release time.
	PostStateDraft PostState = "draft"
	// PostStateScheduled is an unpublished post waiting for its ScheduledAt time.
	PostStateScheduled PostState = "scheduled"
	// PostStatePublished is a post visible on the public API.
	PostStatePublished PostState = "published"
)

// Post is one language specific rendition of an article.
// Slug is unique per Language; renditions of the same article share a TranslationGroup.
type Post struct {
	ID               uint64                      `gorm:"primaryKey"                                 json:"id"`
	Slug             string                      `gorm:"size:200;not null;uniqueIndex:idx_slug_lang" json:"slug"`
	Language         string                      `gorm:"size:10;not null;uniqueIndex:idx_slug_lang;index" json:"language"`
	Title            string                      `gorm:"size:300;not null"                          json:"title"`
	Excerpt          string                      `gorm:"type:text"                                  json:"excerpt"`
	Body             string                      `gorm:"type:text"                                  json:"body"`
	Author           string                      `gorm:"size:200"                                   json:"author"`
	Tags             datatypes.JSONSlice[string] `json:"tags"`
	TranslationGroup *string                     `gorm:"size:64;index"                              json:"translationGroup,omitempty"`
	Published        bool                        `gorm:"not null;default:false;index:idx_due"       json:"published"`
	PublishedAt      *time.Time                  `gorm:"index"                                      json:"publishedAt,omitempty"`
	ScheduledAt      *time.Time                  `gorm:"index:idx_due"                              json:"scheduledAt,omitempty"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

// State returns the publication state of the post.
func (p *Post) State() PostState {
	switch {
	case p.Published:
		return PostStatePublished
	case p.ScheduledAt != nil:
		return PostStateScheduled
	default:
		return PostStateDraft
	}
}

// IsDue reports whether a scheduled post has reached its release time.
func (p *Post) IsDue(now time.Time) bool {
	return !p.Published && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
}
