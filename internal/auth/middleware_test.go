package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/db/models"
)

func newMiddlewareApp(m *JWTManager) *fiber.App {
	app := fiber.New()

	whoami := func(c fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return c.SendString("anonymous")
		}

		return c.SendString(claims.Email)
	}

	app.Get("/optional", OptionalAuth(m), whoami)
	app.Get("/private", RequireAuth(m), whoami)
	app.Get("/admin", RequireAuth(m), RequireRole(models.RoleAdmin), whoami)
	app.Get("/norequireauth", RequireRole(models.RoleAdmin), whoami)

	return app
}

func TestMiddleware(t *testing.T) {
	m := newTestManager(t)
	app := newMiddlewareApp(m)

	adminToken, _, err := m.GenerateToken(&models.User{ID: 1, Email: "admin@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	editorToken, _, err := m.GenerateToken(&models.User{ID: 2, Email: "editor@example.com", Role: models.RoleEditor})
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "optional anonymous", path: "/optional", wantStatus: fiber.StatusOK},
		{name: "optional with bad token", path: "/optional", header: "Bearer nope", wantStatus: fiber.StatusOK},
		{name: "private without token", path: "/private", wantStatus: fiber.StatusUnauthorized},
		{name: "private with basic auth", path: "/private", header: "Basic Zm9vOmJhcg==", wantStatus: fiber.StatusUnauthorized},
		{name: "private with bad token", path: "/private", header: "Bearer nope", wantStatus: fiber.StatusUnauthorized},
		{name: "private with token", path: "/private", header: "Bearer " + editorToken, wantStatus: fiber.StatusOK},
		{name: "lower case scheme", path: "/private", header: "bearer " + editorToken, wantStatus: fiber.StatusOK},
		{name: "admin as editor", path: "/admin", header: "Bearer " + editorToken, wantStatus: fiber.StatusForbidden},
		{name: "admin as admin", path: "/admin", header: "Bearer " + adminToken, wantStatus: fiber.StatusOK},
		{name: "role without auth", path: "/norequireauth", wantStatus: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
