// Package uploads provides image upload and media management.
package uploads

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/controller/media"
	"github.com/inkpress/inkpress/internal/db/models"
	pipeline "github.com/inkpress/inkpress/internal/media"
	"github.com/inkpress/inkpress/internal/metrics"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the base path for uploads.
	Path = handler.AdminPath + "/uploads"

	// FormField is the multipart field carrying the image.
	FormField = "file"
)

// Service handles uploads.
type Service struct {
	handler.Service
	db       *gorm.DB
	pipeline *pipeline.Pipeline
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.JWT == nil || deps.Pipeline == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB
	s.pipeline = deps.Pipeline

	router := deps.Protected(app, Path, models.RoleAdmin, models.RoleEditor)
	router.Get(handler.RootPath, s.List)
	router.Post(handler.RootPath, s.Upload)
	router.Get("/:id", s.Get)
	router.Delete("/:id", s.Delete)

	return nil
}

func pipelineError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, pipeline.ErrTooLarge):
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, pipeline.ErrUnsupportedType):
		return fiber.NewError(fiber.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, pipeline.ErrEmpty):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return handler.Internal(c, err, "failed to process upload")
	}
}

// read returns the uploaded file, refusing anything above the pipeline limit.
func (s *Service) read(c fiber.Ctx) (string, []byte, error) {
	fh, err := c.FormFile(FormField)
	if err != nil {
		return "", nil, fiber.NewError(fiber.StatusBadRequest, "multipart field \""+FormField+"\" is required")
	}

	if fh.Size > s.pipeline.MaxBytes() {
		return "", nil, pipeline.ErrTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", nil, err
	}

	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, s.pipeline.MaxBytes()+1))
	if err != nil {
		return "", nil, err
	}

	return fh.Filename, data, nil
}

// Upload processes and stores an image.
func (s *Service) Upload(c fiber.Ctx) error {
	name, data, err := s.read(c)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return err
		}

		metrics.Uploads.WithLabelValues(metrics.ResultRejected).Inc()

		return pipelineError(c, err)
	}

	m, err := s.pipeline.Process(c.Context(), name, data)
	if err != nil {
		result := metrics.ResultRejected
		if !errors.Is(err, pipeline.ErrTooLarge) && !errors.Is(err, pipeline.ErrUnsupportedType) &&
			!errors.Is(err, pipeline.ErrEmpty) {
			result = metrics.ResultFailure
		}

		metrics.Uploads.WithLabelValues(result).Inc()

		return pipelineError(c, err)
	}

	if claims := auth.ClaimsFrom(c); claims != nil {
		m.UploadedBy = claims.UserID
	}

	if err = media.Create(s.db, m); err != nil {
		if errRemove := s.pipeline.Remove(c.Context(), m); errRemove != nil {
			log.Warn().Err(errRemove).Str("key", m.Key).Msg("failed to remove stored objects of rejected upload")
		}

		metrics.Uploads.WithLabelValues(metrics.ResultFailure).Inc()

		return handler.Internal(c, err, "failed to store media")
	}

	metrics.Uploads.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info().Uint64("id", m.ID).Str("key", m.Key).Int("variants", len(m.Variants)).Msg("image uploaded")

	return c.Status(fiber.StatusCreated).JSON(m)
}

// List returns a page of uploads, newest first.
func (s *Service) List(c fiber.Ctx) error {
	page, err := media.List(s.db, handler.QueryInt(c, "page", 1), handler.QueryInt(c, "limit", 0))
	if err != nil {
		return handler.Internal(c, err, "failed to list media")
	}

	return c.JSON(page)
}

// Get returns one upload.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	m, err := media.Get(s.db, id)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		return handler.Internal(c, err, "failed to load media")
	}

	return c.JSON(m)
}

// Delete removes the stored objects and the row of an upload.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	m, err := media.Get(s.db, id)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		return handler.Internal(c, err, "failed to load media")
	}

	if err = s.pipeline.Remove(c.Context(), m); err != nil {
		return handler.Internal(c, err, "failed to remove stored objects")
	}

	if err = media.Delete(s.db, id); err != nil && !errors.Is(err, media.ErrMediaNotFound) {
		return handler.Internal(c, err, "failed to delete media")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
