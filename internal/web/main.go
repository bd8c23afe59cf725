// Package web wires the HTTP API: middleware, health and metrics endpoints and all handlers.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/config"
	accesslog "github.com/inkpress/inkpress/internal/logger/adapter/fiber"
	"github.com/inkpress/inkpress/internal/media"
	"github.com/inkpress/inkpress/internal/web/handler"
	"github.com/inkpress/inkpress/internal/web/handler/account"
	adminanalytics "github.com/inkpress/inkpress/internal/web/handler/admin/analytics"
	"github.com/inkpress/inkpress/internal/web/handler/admin/configuration"
	"github.com/inkpress/inkpress/internal/web/handler/admin/dashboard"
	adminposts "github.com/inkpress/inkpress/internal/web/handler/admin/posts"
	"github.com/inkpress/inkpress/internal/web/handler/admin/publisher"
	adminsettings "github.com/inkpress/inkpress/internal/web/handler/admin/settings"
	"github.com/inkpress/inkpress/internal/web/handler/admin/uploads"
	"github.com/inkpress/inkpress/internal/web/handler/admin/user"
	"github.com/inkpress/inkpress/internal/web/handler/analytics"
	"github.com/inkpress/inkpress/internal/web/handler/login"
	"github.com/inkpress/inkpress/internal/web/handler/posts"
	"github.com/inkpress/inkpress/internal/web/handler/settings"
)

const (
	defaultBodyLimit = 4 << 20
	// multipart overhead on top of the largest accepted upload
	uploadBodySlack = 1 << 20
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// New creates the web service and registers every handler whose dependencies are present.
func New(deps *handler.Deps) (*Service, error) {
	if deps == nil || deps.Config == nil || deps.DB == nil || deps.JWT == nil {
		return nil, handler.ErrNilDeps
	}

	cfg := deps.Config

	if deps.Validator == nil {
		deps.Validator = handler.NewValidator()
	}

	bodyLimit := cfg.Webserver.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = defaultBodyLimit
	}

	if deps.Pipeline != nil {
		if need := int(deps.Pipeline.MaxBytes()) + uploadBodySlack; need > bodyLimit {
			bodyLimit = need
		}
	}

	title := cfg.Title
	if title == "" {
		title = "inkpress"
	}

	app := fiber.New(
		fiber.Config{
			AppName:       title,
			CaseSensitive: true,
			Immutable:     true,
			BodyLimit:     bodyLimit,
			ErrorHandler:  ErrorHandler,
			JSONEncoder:   json.Marshal,
			JSONDecoder:   json.Unmarshal,
		},
	)

	service := &Service{
		App:          app,
		cfg:          cfg,
		fastShutDown: cfg.DevMode,
	}
	service.alive.Store(true)

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: cfg.Webserver.CheckAliveURI,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	if len(cfg.Webserver.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.Webserver.CORSOrigins,
			AllowMethods: []string{
				fiber.MethodGet, fiber.MethodPost, fiber.MethodPut, fiber.MethodDelete, fiber.MethodOptions,
			},
			AllowHeaders: []string{fiber.HeaderAuthorization, fiber.HeaderContentType},
		}))
	}

	checkAlive := cfg.Webserver.CheckAliveURI
	if checkAlive == "" {
		checkAlive = "/health"
	}

	app.Get(checkAlive, service.health)

	if cfg.Metrics.Enabled {
		metricsPath := cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}

		app.Get(metricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	if deps.Pipeline != nil && (cfg.Upload.Backend == "" || cfg.Upload.Backend == config.UploadBackendLocal) {
		serveUploads(app, cfg)
	}

	services := []handler.Service{
		&posts.Service{},
		&settings.Service{},
		&login.Service{},
		&account.Service{},
		&adminposts.Service{},
		&adminsettings.Service{},
		&adminanalytics.Service{},
		&user.Service{},
		&dashboard.Service{},
		&configuration.Service{},
	}

	if deps.Collector != nil {
		services = append(services, &analytics.Service{})
	}

	if deps.Pipeline != nil {
		services = append(services, &uploads.Service{})
	}

	if deps.Publisher != nil {
		services = append(services, &publisher.Service{})
	}

	for _, s := range services {
		if err := s.Init(app, deps); err != nil {
			return nil, err
		}
	}

	return service, nil
}

// serveUploads exposes the local upload directory when its public URL points at this server,
// either as a path or as an absolute URL on Webserver.URL.
func serveUploads(app *fiber.App, cfg *config.Config) {
	dir := cfg.Upload.Dir
	if dir == "" {
		dir = media.DefaultDir
	}

	prefix, ok := localPrefix(cfg.Upload.PublicURL, cfg.Webserver.URL)
	if !ok {
		log.Debug().Str("public_url", cfg.Upload.PublicURL).Msg("uploads are served by another host")

		return
	}

	app.Use(prefix, static.New(dir, static.Config{
		MaxAge: int((365 * 24 * time.Hour).Seconds()),
	}))
}

// localPrefix returns the route prefix of publicURL if it is served by the server at baseURL.
func localPrefix(publicURL, baseURL string) (string, bool) {
	if publicURL == "" {
		publicURL = media.DefaultPublicURL
	}

	if strings.HasPrefix(publicURL, "/") {
		return strings.TrimRight(publicURL, "/"), true
	}

	pub, err := url.Parse(publicURL)
	if err != nil {
		return "", false
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" || !strings.EqualFold(pub.Host, base.Host) {
		return "", false
	}

	prefix := strings.TrimRight(pub.Path, "/")
	if prefix == "" {
		return "", false
	}

	return prefix, true
}

// health answers 503 while the service drains before shutdown.
func (s *Service) health(c fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "shutting down"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

// String implements fmt.Stringer for the supervisor.
func (s *Service) String() string {
	return "web"
}

// Serve listens until ctx is cancelled, then shuts the server down gracefully.
func (s *Service) Serve(ctx context.Context) error {
	addr := ":" + strconv.Itoa(s.cfg.Webserver.Port)
	listenErr := make(chan error, 1)

	go func() {
		log.Info().Str("addr", addr).Msg("starting http server")

		listenErr <- s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case err := <-listenErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case <-ctx.Done():
	}

	s.shutdown()
	<-listenErr

	return ctx.Err()
}

// shutdown lets load balancers see the failing health check before the server stops.
func (s *Service) shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}
