package analytics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/config"
)

func TestLimiter(t *testing.T) {
	app := fiber.New()
	app.Post("/events",
		NewLimiter(config.Analytics{RateLimit: 2, RateWindow: time.Minute}, nil, func(c fiber.Ctx) bool {
			return c.Get("X-Skip") != ""
		}),
		func(c fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) },
	)

	send := func(skip bool) int {
		req := httptest.NewRequest(fiber.MethodPost, "/events", nil)
		if skip {
			req.Header.Set("X-Skip", "1")
		}

		resp, err := app.Test(req)
		require.NoError(t, err)

		_ = resp.Body.Close()

		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusAccepted, send(false))
	assert.Equal(t, fiber.StatusAccepted, send(false))
	assert.Equal(t, fiber.StatusTooManyRequests, send(false))
	assert.Equal(t, fiber.StatusAccepted, send(true), "skipped requests are not limited")
}

func TestNewLimiterStorageDisabled(t *testing.T) {
	assert.Nil(t, NewLimiterStorage(&config.Config{}))
	assert.Nil(t, NewLimiterStorage(&config.Config{
		DB:        config.DB{Engine: config.EngineSQLite},
		Analytics: config.Analytics{SharedLimiter: true},
	}))
}
