package analytics

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	mysqlstorage "github.com/gofiber/storage/mysql/v2"
	postgresstorage "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/dsn"
	"github.com/inkpress/inkpress/internal/metrics"
)

const (
	defaultRateLimit  = 60
	defaultRateWindow = time.Minute
	defaultTable      = "analytics_limiter"
)

// NewLimiterStorage returns a database backed storage for the rate limiter when
// Analytics.SharedLimiter is set, so several instances share one budget per client.
// It returns nil (process memory) otherwise or when the engine has no shared storage.
func NewLimiterStorage(cfg *config.Config) fiber.Storage {
	if !cfg.Analytics.SharedLimiter {
		return nil
	}

	table := cfg.Analytics.LimiterTable
	if table == "" {
		table = defaultTable
	}

	switch cfg.DB.Engine {
	case config.EngineMySQL:
		return mysqlstorage.New(mysqlstorage.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         table,
			GCInterval:    10 * time.Second,
		})
	case config.EnginePostgres:
		return postgresstorage.New(postgresstorage.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         table,
			GCInterval:    10 * time.Second,
		})
	default:
		log.Warn().Str("engine", cfg.DB.Engine).Msg("shared analytics limiter is not available for this engine, using memory")

		return nil
	}
}

// NewLimiter creates the per client rate limit of the event endpoint.
// Requests for which skip returns true are not counted.
func NewLimiter(cfg config.Analytics, storage fiber.Storage, skip func(c fiber.Ctx) bool) fiber.Handler {
	maxRequests := cfg.RateLimit
	if maxRequests <= 0 {
		maxRequests = defaultRateLimit
	}

	window := cfg.RateWindow
	if window <= 0 {
		window = defaultRateWindow
	}

	return limiter.New(limiter.Config{
		Next:       skip,
		Max:        maxRequests,
		Expiration: window,
		KeyGenerator: func(c fiber.Ctx) string {
			return "analytics:" + c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			metrics.AnalyticsEvents.WithLabelValues(metrics.ResultLimited).Inc()

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		},
		Storage: storage,
	})
}
