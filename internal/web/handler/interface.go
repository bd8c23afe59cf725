package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/analytics"
	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/media"
)

// Revalidator is told about every change of published content.
type Revalidator interface {
	Revalidate(slug, language string)
}

// Sweeper runs one publication sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Deps bundles everything handlers need.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	JWT       *auth.JWTManager
	Users     *auth.LocalProvider
	Notifier  Revalidator
	Pipeline  *media.Pipeline
	Collector *analytics.Collector
	Publisher Sweeper
	Limiter   fiber.Storage
	Validator *validator.Validate
}

// Protected returns a router for prefix which requires a valid token of one of the roles.
func (d *Deps) Protected(app *fiber.App, prefix string, roles ...models.Role) fiber.Router {
	return app.Group(prefix, auth.RequireAuth(d.JWT), auth.RequireRole(roles...))
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps) error
}
