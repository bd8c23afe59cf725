// Package analytics receives tracking events from the frontend.
package analytics

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	collector "github.com/inkpress/inkpress/internal/analytics"
	"github.com/inkpress/inkpress/internal/web/handler"
)

// Path is the event intake endpoint.
const Path = handler.APIPath + "/analytics/events"

// Service stores analytics events.
type Service struct {
	handler.Service
	collector *collector.Collector
	validator *validator.Validate
}

// Init registers routes. Bots and ignored addresses are answered before the rate limit is applied.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Collector == nil || deps.Config == nil {
		return handler.ErrNilDeps
	}

	s.collector = deps.Collector
	s.validator = deps.Validator

	if s.validator == nil {
		s.validator = handler.NewValidator()
	}

	skip := func(c fiber.Ctx) bool {
		_, dropped := s.collector.Dropped(c.Get(fiber.HeaderUserAgent), c.IP())

		return dropped
	}

	app.Post(Path, collector.NewLimiter(deps.Config.Analytics, deps.Limiter, skip), s.Collect)

	return nil
}

// Collect validates and stores one event.
func (s *Service) Collect(c fiber.Ctx) error {
	var ev collector.Event

	if err := handler.Bind(c, s.validator, &ev); err != nil {
		return err
	}

	outcome, err := s.collector.Collect(ev, c.Get(fiber.HeaderUserAgent), c.IP())
	if err != nil {
		if errors.Is(err, collector.ErrMetadataTooLarge) {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
		}

		return handler.Internal(c, err, "failed to store event")
	}

	if outcome != collector.Stored {
		return c.SendStatus(fiber.StatusNoContent)
	}

	return c.SendStatus(fiber.StatusAccepted)
}
