// Package settings serves admin toggles to the frontend.
package settings

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/db/controller/setting"
	"github.com/inkpress/inkpress/internal/web/handler"
)

// Path is the base path of the public settings API.
const Path = handler.APIPath + "/settings"

// Service serves settings read only.
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

	app.Get(Path+"/:key", s.Get)

	return nil
}

// SettingError maps setting controller errors to HTTP errors.
func SettingError(c fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, setting.ErrSettingNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, setting.ErrSettingKeyEmpty),
		errors.Is(err, setting.ErrSettingKeyTooLong),
		errors.Is(err, setting.ErrSettingValueInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return handler.Internal(c, err, msg)
	}
}

// Get returns one setting.
func (s *Service) Get(c fiber.Ctx) error {
	st, err := setting.Get(s.db, c.Params("key"))
	if err != nil {
		return SettingError(c, err, "failed to load setting")
	}

	return c.JSON(st)
}
