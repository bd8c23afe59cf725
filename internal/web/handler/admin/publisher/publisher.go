// Package publisher exposes a manual trigger of the scheduled publication sweep.
package publisher

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

// Path is the base path of the publisher API.
const Path = handler.AdminPath + "/publisher"

// Service runs sweeps on request.
type Service struct {
	handler.Service
	sweeper handler.Sweeper
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.JWT == nil || deps.Publisher == nil {
		return handler.ErrNilDeps
	}

	s.sweeper = deps.Publisher

	deps.Protected(app, Path, models.RoleAdmin).Post("/sweep", s.Sweep)

	return nil
}

// Sweep publishes every due post now. Running it next to the scheduled sweep is safe.
func (s *Service) Sweep(c fiber.Ctx) error {
	published, err := s.sweeper.Sweep(c.Context())
	if err != nil {
		return handler.Internal(c, err, "sweep failed")
	}

	if claims := auth.ClaimsFrom(c); claims != nil {
		log.Info().Uint64("user_id", claims.UserID).Int("published", published).Msg("manual publication sweep")
	}

	return c.JSON(fiber.Map{"published": published})
}
