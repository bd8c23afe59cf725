// Package settings provides the settings management API.
package settings

import (
	"bytes"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/controller/setting"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
	public "github.com/inkpress/inkpress/internal/web/handler/settings"
)

// Path is the base path for settings management.
const Path = handler.AdminPath + "/settings"

// Service provides list, upsert and delete of settings.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.JWT == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB

	router := deps.Protected(app, Path, models.RoleAdmin)
	router.Get(handler.RootPath, s.List)
	router.Put("/:key", s.Put)
	router.Delete("/:key", s.Delete)

	return nil
}

// List returns every setting.
func (s *Service) List(c fiber.Ctx) error {
	items, err := setting.GetAll(s.db)
	if err != nil {
		return handler.Internal(c, err, "failed to list settings")
	}

	return c.JSON(fiber.Map{"items": items})
}

// Put stores the request body as the value of the setting.
func (s *Service) Put(c fiber.Ctx) error {
	value := datatypes.JSON(bytes.Clone(c.Body()))

	st, err := setting.Set(s.db, c.Params("key"), value)
	if err != nil {
		return public.SettingError(c, err, "failed to store setting")
	}

	if claims := auth.ClaimsFrom(c); claims != nil {
		log.Info().Str("key", st.Key).Uint64("user_id", claims.UserID).Msg("setting stored")
	}

	return c.JSON(st)
}

// Delete removes a setting.
func (s *Service) Delete(c fiber.Ctx) error {
	if err := setting.Delete(s.db, c.Params("key")); err != nil {
		return public.SettingError(c, err, "failed to delete setting")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
