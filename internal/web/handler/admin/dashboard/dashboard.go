// Package dashboard provides the overview shown on the admin start page.
package dashboard

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/controller/analytics"
	"github.com/inkpress/inkpress/internal/db/controller/media"
	"github.com/inkpress/inkpress/internal/db/controller/post"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the path of the dashboard.
	Path = handler.AdminPath + "/dashboard"

	// DefaultUpcoming is the number of scheduled posts listed.
	DefaultUpcoming = 5

	// TrafficDays is the window of the traffic summary.
	TrafficDays = 7
)

// Response is the dashboard payload.
type Response struct {
	Posts    *post.Stats        `json:"posts"`
	Upcoming []models.Post      `json:"upcoming"`
	Media    int64              `json:"media"`
	Users    int64              `json:"users"`
	Traffic  *analytics.Summary `json:"traffic"`
}

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	db    *gorm.DB
	users *auth.LocalProvider
	now   func() time.Time
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.DB == nil || deps.JWT == nil || deps.Users == nil {
		return handler.ErrNilDeps
	}

	s.db = deps.DB
	s.users = deps.Users
	s.now = func() time.Time { return time.Now().UTC() }

	deps.Protected(app, Path, models.RoleAdmin, models.RoleEditor).Get(handler.RootPath, s.Get)

	return nil
}

// Get collects post, media, account and traffic numbers.
func (s *Service) Get(c fiber.Ctx) error {
	var (
		resp Response
		err  error
		now  = s.now()
	)

	if resp.Posts, err = post.GetStats(s.db); err != nil {
		return handler.Internal(c, err, "failed to count posts")
	}

	limit := handler.QueryInt(c, "upcoming", DefaultUpcoming)
	if resp.Upcoming, err = post.Upcoming(s.db, now, limit); err != nil {
		return handler.Internal(c, err, "failed to list upcoming posts")
	}

	if resp.Media, err = media.Count(s.db); err != nil {
		return handler.Internal(c, err, "failed to count media")
	}

	if resp.Users, err = s.users.CountUsers(); err != nil {
		return handler.Internal(c, err, "failed to count users")
	}

	if resp.Traffic, err = analytics.GetSummary(s.db, analytics.LastDays(now, TrafficDays)); err != nil {
		return handler.Internal(c, err, "failed to summarise traffic")
	}

	log.Debug().
		Int64("posts", resp.Posts.Total).
		Int("upcoming", len(resp.Upcoming)).
		Int64("pageviews", resp.Traffic.Pageviews).
		Msg("dashboard retrieved")

	return c.JSON(resp)
}
