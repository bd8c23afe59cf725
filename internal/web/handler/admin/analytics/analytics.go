// Package analytics provides the aggregate views of the admin dashboard.
package analytics

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"

	controller "github.com/inkpress/inkpress/internal/db/controller/analytics"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the base path of the analytics views.
	Path = handler.AdminPath + "/analytics"

	// DefaultDays is the window used when neither from/to nor days is given.
	DefaultDays = 30
	// MaxDays is the largest window accepted through the days parameter.
	MaxDays = 366
)

var errBadTime = errors.New("from and to must be RFC 3339 timestamps or YYYY-MM-DD dates")

// Service serves analytics aggregates.
type Service struct {
	handler.Service
	db  *gorm.DB
	now func() time.Time
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.JWT == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB
	s.now = func() time.Time { return time.Now().UTC() }

	router := deps.Protected(app, Path, models.RoleAdmin)
	router.Get("/summary", s.Summary)
	router.Get("/pages", s.Pages)
	router.Get("/daily", s.Daily)
	router.Get("/devices", s.Devices)
	router.Get("/referrers", s.Referrers)
	router.Get("/tools", s.Tools)

	return nil
}

// parseTime accepts a timestamp or a date. A date used as upper bound covers the whole day.
func parseTime(v string, upper bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, errBadTime
	}

	if upper {
		t = t.AddDate(0, 0, 1)
	}

	return t, nil
}

// window reads from/to or days from the query string.
func (s *Service) window(c fiber.Ctx) (controller.Range, error) {
	from, to := c.Query("from"), c.Query("to")

	if from == "" && to == "" {
		days := handler.QueryInt(c, "days", DefaultDays)
		if days < 1 || days > MaxDays {
			return controller.Range{}, fiber.NewError(fiber.StatusBadRequest, "days must be between 1 and 366")
		}

		return controller.LastDays(s.now(), days), nil
	}

	r := controller.Range{To: s.now()}

	if to != "" {
		t, err := parseTime(to, true)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		r.To = t
	}

	r.From = r.To.AddDate(0, 0, -DefaultDays)

	if from != "" {
		t, err := parseTime(from, false)
		if err != nil {
			return r, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		r.From = t
	}

	if r.To.Before(r.From) {
		return r, fiber.NewError(fiber.StatusBadRequest, controller.ErrInvalidRange.Error())
	}

	return r, nil
}

func top(c fiber.Ctx) int {
	return handler.QueryInt(c, "limit", controller.DefaultTop)
}

// Summary returns pageviews, unique sessions and events by kind.
func (s *Service) Summary(c fiber.Ctx) error {
	r, err := s.window(c)
	if err != nil {
		return err
	}

	summary, err := controller.GetSummary(s.db, r)
	if err != nil {
		return handler.Internal(c, err, "failed to compute summary")
	}

	return c.JSON(summary)
}

// Pages returns the most viewed paths.
func (s *Service) Pages(c fiber.Ctx) error {
	r, err := s.window(c)
	if err != nil {
		return err
	}

	items, err := controller.TopPaths(s.db, r, top(c))
	if err != nil {
		return handler.Internal(c, err, "failed to compute top pages")
	}

	return c.JSON(fiber.Map{"items": items})
}

// Daily returns pageviews per day.
func (s *Service) Daily(c fiber.Ctx) error {
	r, err := s.window(c)
	if err != nil {
		return err
	}

	items, err := controller.Daily(s.db, r)
	if err != nil {
		return handler.Internal(c, err, "failed to compute daily pageviews")
	}

	return c.JSON(fiber.Map{"items": items})
}

// Devices returns the device, browser and OS breakdown.
func (s *Service) Devices(c fiber.Ctx) error {
	r, err := s.window(c)
	if err != nil {
		return err
	}

	devices, err := controller.GetDevices(s.db, r, top(c))
	if err != nil {
		return handler.Internal(c, err, "failed to compute devices")
	}

	return c.JSON(devices)
}

// Referrers returns the most common referrers.
func (s *Service) Referrers(c fiber.Ctx) error {
	r, err := s.window(c)
	if err != nil {
		return err
	}

	items, err := controller.Referrers(s.db, r, top(c))
	if err != nil {
		return handler.Internal(c, err, "failed to compute referrers")
	}

	return c.JSON(fiber.Map{"items": items})
}

// Tools returns the most used tools.
func (s *Service) Tools(c fiber.Ctx) error {
	r, err := s.window(c)
	if err != nil {
		return err
	}

	items, err := controller.Tools(s.db, r, top(c))
	if err != nil {
		return handler.Internal(c, err, "failed to compute tool usage")
	}

	return c.JSON(fiber.Map{"items": items})
}
