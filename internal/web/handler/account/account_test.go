package account

import (
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler/handlertest"
)

func register(email string, role models.Role) map[string]any {
	body := map[string]any{"email": email, "password": "long-password", "displayName": " Name "}
	if role != "" {
		body["role"] = role
	}

	return body
}

func TestRegisterBootstrap(t *testing.T) {
	deps, _ := handlertest.New(t)
	app := handlertest.App(t, deps, &Service{})

	status, raw := handlertest.Do(t, app, fiber.MethodPost, Path+"/register", "", register("first@example.com", ""))
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	var user models.User
	handlertest.Decode(t, raw, &user)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Name", user.DisplayName)

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/register", "", register("second@example.com", ""))
	assert.Equal(t, fiber.StatusForbidden, status, "registration is closed once a user exists")
}

func TestRegisterByAdmin(t *testing.T) {
	deps, _ := handlertest.New(t)
	app := handlertest.App(t, deps, &Service{})

	admin := handlertest.Token(t, deps, models.RoleAdmin)
	editor := handlertest.Token(t, deps, models.RoleEditor)

	status, _ := handlertest.Do(t, app, fiber.MethodPost, Path+"/register", editor, register("x@example.com", ""))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, raw := handlertest.Do(t, app, fiber.MethodPost, Path+"/register", admin, register("boss@example.com", models.RoleAdmin))
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	var user models.User
	handlertest.Decode(t, raw, &user)
	assert.Equal(t, models.RoleAdmin, user.Role)

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/register", admin, register("boss@example.com", ""))
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/register", admin, register("root@example.com", "root"))
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestRegisterOpen(t *testing.T) {
	deps, _ := handlertest.New(t)
	deps.Config.Auth.RegistrationEnabled = true
	app := handlertest.App(t, deps, &Service{})

	handlertest.Token(t, deps, models.RoleAdmin)

	status, raw := handlertest.Do(t, app, fiber.MethodPost, Path+"/register", "", register("guest@example.com", models.RoleAdmin))
	require.Equal(t, fiber.StatusCreated, status, string(raw))

	var user models.User
	handlertest.Decode(t, raw, &user)
	assert.Equal(t, models.RoleEditor, user.Role, "self registered users never pick their role")
}

func TestMeAndPassword(t *testing.T) {
	deps, _ := handlertest.New(t)
	app := handlertest.App(t, deps, &Service{})
	token := handlertest.Token(t, deps, models.RoleEditor)

	status, _ := handlertest.Do(t, app, fiber.MethodGet, Path+"/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, raw := handlertest.Do(t, app, fiber.MethodGet, Path+"/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	var me models.User
	handlertest.Decode(t, raw, &me)
	assert.Equal(t, "editor@example.com", me.Email)

	status, _ = handlertest.Do(t, app, fiber.MethodPut, Path+"/password", token,
		map[string]string{"oldPassword": "wrong-password", "newPassword": "brand-new-pass"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = handlertest.Do(t, app, fiber.MethodPut, Path+"/password", token,
		map[string]string{"oldPassword": "password-editor", "newPassword": "short"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = handlertest.Do(t, app, fiber.MethodPut, Path+"/password", token,
		map[string]string{"oldPassword": "password-editor", "newPassword": "brand-new-pass"})
	require.Equal(t, fiber.StatusNoContent, status)

	_, err := deps.Users.Authenticate("editor@example.com", "brand-new-pass", "")
	require.NoError(t, err)
}

func TestTOTPFlow(t *testing.T) {
	deps, _ := handlertest.New(t)
	app := handlertest.App(t, deps, &Service{})
	token := handlertest.Token(t, deps, models.RoleAdmin)

	status, _ := handlertest.Do(t, app, fiber.MethodPost, Path+"/totp/enable", token, map[string]string{"code": "123456"})
	assert.Equal(t, fiber.StatusBadRequest, status, "enable before setup")

	status, raw := handlertest.Do(t, app, fiber.MethodPost, Path+"/totp/setup", token, nil)
	require.Equal(t, fiber.StatusOK, status, string(raw))

	var setup auth.TOTPSetup
	handlertest.Decode(t, raw, &setup)
	require.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.URL, "otpauth://totp/")

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/totp/enable", token, map[string]string{"code": code})
	require.Equal(t, fiber.StatusNoContent, status)

	_, err = deps.Users.Authenticate("admin@example.com", "password-admin", "")
	require.ErrorIs(t, err, auth.ErrOTPRequired)

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/totp/setup", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, status, "already enabled")

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/totp/disable", token, map[string]string{"password": "wrong"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = handlertest.Do(t, app, fiber.MethodPost, Path+"/totp/disable", token, map[string]string{"password": "password-admin"})
	require.Equal(t, fiber.StatusNoContent, status)

	_, err = deps.Users.Authenticate("admin@example.com", "password-admin", "")
	require.NoError(t, err)
}
