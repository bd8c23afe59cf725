// Package posts provides the editorial post management API.
package posts

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/controller/post"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the base path for post management.
	Path = handler.AdminPath + "/posts"

	// TranslationsPath lists every rendition of a translation group.
	TranslationsPath = handler.AdminPath + "/translations"
)

// Request is the body of create and update calls.
type Request struct {
	Slug                string     `json:"slug"                validate:"required,slug,max=200"`
	Language            string     `json:"language"            validate:"required,lang"`
	Title               string     `json:"title"               validate:"required,max=300"`
	Excerpt             string     `json:"excerpt"`
	Body                string     `json:"body"`
	Author              string     `json:"author"              validate:"max=200"`
	Tags                []string   `json:"tags"                validate:"max=30,dive,required,max=50"`
	TranslationGroup    *string    `json:"translationGroup"    validate:"omitempty,max=64"`
	NewTranslationGroup bool       `json:"newTranslationGroup"`
	Published           *bool      `json:"published"`
	ScheduledAt         *time.Time `json:"scheduledAt"`
}

// Service provides CRUD operations for posts.
type Service struct {
	handler.Service
	db        *gorm.DB
	users     *auth.LocalProvider
	notifier  handler.Revalidator
	validator *validator.Validate
	now       func() time.Time
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.JWT == nil || deps.Notifier == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB
	s.users = deps.Users
	s.notifier = deps.Notifier
	s.validator = deps.Validator
	s.now = func() time.Time { return time.Now().UTC() }

	if s.validator == nil {
		s.validator = handler.NewValidator()
	}

	router := deps.Protected(app, Path, models.RoleAdmin, models.RoleEditor)
	router.Get(handler.RootPath, s.List)
	router.Post(handler.RootPath, s.Create)
	router.Get("/:id", s.Get)
	router.Put("/:id", s.Update)
	router.Delete("/:id", s.Delete)
	router.Post("/:id/publish", s.Publish)
	router.Post("/:id/unpublish", s.Unpublish)

	deps.Protected(app, TranslationsPath, models.RoleAdmin, models.RoleEditor).
		Get("/:group", s.Translations)

	return nil
}

func postError(c fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, post.ErrPostNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, post.ErrSlugTaken), errors.Is(err, post.ErrPostChanged):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, post.ErrInvalidStatus), errors.Is(err, post.ErrGroupEmpty):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return handler.Internal(c, err, msg)
	}
}

// bind reads and normalises the request body.
func (s *Service) bind(c fiber.Ctx) (*Request, error) {
	var req Request

	if err := c.Bind().Body(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	req.Slug = handler.NormalizeSlug(req.Slug)
	req.Title = strings.TrimSpace(req.Title)

	tags := make([]string, 0, len(req.Tags))
	seen := map[string]bool{}

	for _, tag := range req.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}

		seen[tag] = true
		tags = append(tags, tag)
	}

	req.Tags = tags

	if req.NewTranslationGroup {
		group := uuid.NewString()
		req.TranslationGroup = &group
	} else if req.TranslationGroup != nil && strings.TrimSpace(*req.TranslationGroup) == "" {
		req.TranslationGroup = nil
	}

	if req.ScheduledAt != nil {
		at := req.ScheduledAt.UTC()
		req.ScheduledAt = &at
	}

	if err := handler.Validate(s.validator, &req); err != nil {
		return nil, err
	}

	return &req, nil
}

func (req *Request) apply(p *models.Post) {
	p.Slug = req.Slug
	p.Language = req.Language
	p.Title = req.Title
	p.Excerpt = req.Excerpt
	p.Body = req.Body
	p.Author = req.Author
	p.Tags = req.Tags
	p.TranslationGroup = req.TranslationGroup
	p.ScheduledAt = req.ScheduledAt

	// a published post stays published on edit, unpublish is explicit
	if req.Published != nil && !p.Published {
		p.Published = *req.Published
	}
}

// author falls back to the name of the calling user.
func (s *Service) author(c fiber.Ctx) string {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return ""
	}

	if s.users != nil {
		if user, err := s.users.GetUserByID(claims.UserID); err == nil && user.DisplayName != "" {
			return user.DisplayName
		}
	}

	return claims.Email
}

// List returns a page of posts of any state.
func (s *Service) List(c fiber.Ctx) error {
	lang := c.Query("lang")
	if lang != "" && !handler.IsLanguage(lang) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid language")
	}

	page, err := post.List(s.db, post.Filter{
		Language: lang,
		Tag:      c.Query("tag"),
		Query:    c.Query("q"),
		Status:   models.PostState(c.Query("status")),
		Page:     handler.QueryInt(c, "page", 1),
		Limit:    handler.QueryInt(c, "limit", post.DefaultLimit),
	})
	if err != nil {
		return postError(c, err, "failed to list posts")
	}

	return c.JSON(page)
}

// Get returns a post by id.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	p, err := post.GetByID(s.db, id)
	if err != nil {
		return postError(c, err, "failed to load post")
	}

	return c.JSON(p)
}

// Create stores a new draft, scheduled or published post.
func (s *Service) Create(c fiber.Ctx) error {
	req, err := s.bind(c)
	if err != nil {
		return err
	}

	var p models.Post

	req.apply(&p)

	if p.Author == "" {
		p.Author = s.author(c)
	}

	if err = post.Create(s.db, &p, s.now()); err != nil {
		return postError(c, err, "failed to create post")
	}

	log.Info().Uint64("id", p.ID).Str("slug", p.Slug).Str("language", p.Language).
		Str("state", string(p.State())).
		Msg("post created")

	if p.Published {
		s.notifier.Revalidate(p.Slug, p.Language)
	}

	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update replaces the editable fields of a post.
func (s *Service) Update(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	req, err := s.bind(c)
	if err != nil {
		return err
	}

	p, err := post.GetByID(s.db, id)
	if err != nil {
		return postError(c, err, "failed to load post")
	}

	before := *p

	req.apply(p)

	if p.Author == "" {
		p.Author = before.Author
	}

	if err = post.Update(s.db, p, before.Published, s.now()); err != nil {
		return postError(c, err, "failed to update post")
	}

	moved := before.Slug != p.Slug || before.Language != p.Language

	if before.Published {
		s.notifier.Revalidate(before.Slug, before.Language)
	}

	if p.Published && (!before.Published || moved) {
		s.notifier.Revalidate(p.Slug, p.Language)
	}

	return c.JSON(p)
}

// Delete removes a post.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	p, err := post.Delete(s.db, id)
	if err != nil {
		return postError(c, err, "failed to delete post")
	}

	log.Info().Uint64("id", p.ID).Str("slug", p.Slug).Str("language", p.Language).Msg("post deleted")

	if p.Published {
		s.notifier.Revalidate(p.Slug, p.Language)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Publish makes a post visible now.
func (s *Service) Publish(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	p, err := post.Publish(s.db, id, s.now())
	if err != nil {
		return postError(c, err, "failed to publish post")
	}

	s.notifier.Revalidate(p.Slug, p.Language)

	return c.JSON(p)
}

// Unpublish turns a post back into a draft.
func (s *Service) Unpublish(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	before, err := post.GetByID(s.db, id)
	if err != nil {
		return postError(c, err, "failed to load post")
	}

	p, err := post.Unpublish(s.db, id, s.now())
	if err != nil {
		return postError(c, err, "failed to unpublish post")
	}

	if before.Published {
		s.notifier.Revalidate(p.Slug, p.Language)
	}

	return c.JSON(p)
}

// Translations returns every post of a translation group.
func (s *Service) Translations(c fiber.Ctx) error {
	items, err := post.Translations(s.db, c.Params("group"), 0, false)
	if err != nil {
		return postError(c, err, "failed to load translations")
	}

	return c.JSON(fiber.Map{"items": items})
}
