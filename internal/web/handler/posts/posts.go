// Package posts serves the public, read only content API.
package posts

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/controller/post"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the base path of the public post listing.
	Path = handler.APIPath + "/posts"

	// TagsPath lists the tags of published posts.
	TagsPath = handler.APIPath + "/tags"
)

// Service serves published posts.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB

	app.Get(Path, s.List)
	app.Get(Path+"/:lang/:slug", s.Get)
	app.Get(Path+"/:lang/:slug/translations", s.Translations)
	app.Get(TagsPath, s.Tags)

	return nil
}

// List returns a page of published posts, newest first.
func (s *Service) List(c fiber.Ctx) error {
	lang := c.Query("lang")
	if lang != "" && !handler.IsLanguage(lang) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid language")
	}

	page, err := post.List(s.db, post.Filter{
		Language:      lang,
		Tag:           c.Query("tag"),
		Query:         c.Query("q"),
		PublishedOnly: true,
		Page:          handler.QueryInt(c, "page", 1),
		Limit:         handler.QueryInt(c, "limit", post.DefaultLimit),
	})
	if err != nil {
		return handler.Internal(c, err, "failed to list posts")
	}

	return c.JSON(page)
}

// Get returns a single published post.
func (s *Service) Get(c fiber.Ctx) error {
	p, err := post.GetBySlug(s.db, c.Params("lang"), c.Params("slug"), true)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		return handler.Internal(c, err, "failed to load post")
	}

	return c.JSON(p)
}

// Translations returns the published siblings of a post.
func (s *Service) Translations(c fiber.Ctx) error {
	p, err := post.GetBySlug(s.db, c.Params("lang"), c.Params("slug"), true)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		return handler.Internal(c, err, "failed to load post")
	}

	if p.TranslationGroup == nil || *p.TranslationGroup == "" {
		return c.JSON(fiber.Map{"items": []any{}})
	}

	siblings, err := post.Translations(s.db, *p.TranslationGroup, p.ID, true)
	if err != nil {
		return handler.Internal(c, err, "failed to load translations")
	}

	return c.JSON(fiber.Map{"items": siblings})
}

// Tags returns the tags of published posts with their counts.
func (s *Service) Tags(c fiber.Ctx) error {
	tags, err := post.Tags(s.db, c.Query("lang"))
	if err != nil {
		return handler.Internal(c, err, "failed to list tags")
	}

	return c.JSON(fiber.Map{"items": tags})
}
