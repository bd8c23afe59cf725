package publisher

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/controller/post"
	"github.com/inkpress/inkpress/internal/db/models"
)

// GormStore is the Store backed by the posts table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// FindDue implements Store.
func (s *GormStore) FindDue(ctx context.Context, now time.Time) ([]models.Post, error) {
	return post.FindDue(s.db.WithContext(ctx), now)
}

// MarkPublished implements Store.
func (s *GormStore) MarkPublished(ctx context.Context, id uint64, now time.Time) (bool, error) {
	return post.MarkPublished(s.db.WithContext(ctx), id, now)
}
