package settings

import (
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler/handlertest"
)

func TestSettingsLifecycle(t *testing.T) {
	deps, _ := handlertest.New(t)
	app := handlertest.App(t, deps, &Service{})
	token := handlertest.Token(t, deps, models.RoleAdmin)

	status, raw := handlertest.Do(t, app, fiber.MethodPut, Path+"/banner", token, `{"text":"hello","visible":true}`)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw = handlertest.Do(t, app, fiber.MethodPut, Path+"/banner", token, `false`)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	status, raw = handlertest.Do(t, app, fiber.MethodGet, Path, token, nil)
	require.Equal(t, fiber.StatusOK, status)

	var list struct {
		Items []models.Setting `json:"items"`
	}

	handlertest.Decode(t, raw, &list)
	require.Len(t, list.Items, 1)
	assert.JSONEq(t, `false`, string(list.Items[0].Value))

	status, _ = handlertest.Do(t, app, fiber.MethodPut, Path+"/broken", token, `{"text":`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = handlertest.Do(t, app, fiber.MethodDelete, Path+"/banner", token, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = handlertest.Do(t, app, fiber.MethodDelete, Path+"/banner", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSettingsRequireAdmin(t *testing.T) {
	deps, _ := handlertest.New(t)
	app := handlertest.App(t, deps, &Service{})
	token := handlertest.Token(t, deps, models.RoleEditor)

	status, _ := handlertest.Do(t, app, fiber.MethodGet, Path, token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = handlertest.Do(t, app, fiber.MethodGet, Path, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
