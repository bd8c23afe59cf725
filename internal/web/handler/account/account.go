// Package account provides registration and self service endpoints of the signed in user.
package account

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

// Path is the base path of the account endpoints.
const Path = handler.APIPath + "/auth"

// RegisterRequest is the body of a registration.
type RegisterRequest struct {
	Email       string      `json:"email"       validate:"required,email,max=255"`
	Password    string      `json:"password"    validate:"required,min=8,max=256"`
	DisplayName string      `json:"displayName" validate:"max=200"`
	Role        models.Role `json:"role"        validate:"omitempty,oneof=admin editor"`
}

// PasswordRequest is the body of a password change.
type PasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=256"`
}

// CodeRequest confirms a one time code.
type CodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

// PasswordConfirmRequest confirms an action with the current password.
type PasswordConfirmRequest struct {
	Password string `json:"password" validate:"required"`
}

// Service handles account endpoints.
type Service struct {
	handler.Service
	cfg       config.Auth
	users     *auth.LocalProvider
	validator *validator.Validate
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.Config == nil || deps.JWT == nil || deps.Users == nil {
		return handler.ErrNilDeps
	}

	s.cfg = deps.Config.Auth
	s.users = deps.Users
	s.validator = deps.Validator

	if s.validator == nil {
		s.validator = handler.NewValidator()
	}

	if s.cfg.TOTPIssuer == "" {
		s.cfg.TOTPIssuer = deps.Config.Title
	}

	app.Post(Path+"/register", auth.OptionalAuth(deps.JWT), s.Register)

	// per route middleware, a group on Path would also guard login and register
	requireAuth := auth.RequireAuth(deps.JWT)

	app.Get(Path+"/me", requireAuth, s.Me)
	app.Put(Path+"/password", requireAuth, s.Password)
	app.Post(Path+"/totp/setup", requireAuth, s.SetupTOTP)
	app.Post(Path+"/totp/enable", requireAuth, s.EnableTOTP)
	app.Post(Path+"/totp/disable", requireAuth, s.DisableTOTP)

	return nil
}

func accountError(c fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, auth.ErrTOTPNotSetUp),
		errors.Is(err, auth.ErrTOTPAlreadyEnabled):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidOldPassword),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidOTP):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	default:
		return handler.Internal(c, err, msg)
	}
}

// Register creates an account. The first account becomes admin; later ones need open
// registration or an admin token.
func (s *Service) Register(c fiber.Ctx) error {
	var req RegisterRequest
	if err := handler.Bind(c, s.validator, &req); err != nil {
		return err
	}

	count, err := s.users.CountUsers()
	if err != nil {
		return handler.Internal(c, err, "failed to count users")
	}

	claims := auth.ClaimsFrom(c)
	callerIsAdmin := claims != nil && claims.Role == models.RoleAdmin

	role := models.RoleEditor

	switch {
	case count == 0:
		role = models.RoleAdmin
	case callerIsAdmin:
		if req.Role != "" {
			role = req.Role
		}
	case s.cfg.RegistrationEnabled:
	default:
		return fiber.NewError(fiber.StatusForbidden, "registration is disabled")
	}

	user, err := s.users.CreateUser(req.Email, req.Password, strings.TrimSpace(req.DisplayName), role)
	if err != nil {
		return accountError(c, err, "failed to create user")
	}

	log.Info().Uint64("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")

	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *Service) userID(c fiber.Ctx) uint64 {
	return auth.ClaimsFrom(c).UserID
}

// Me returns the signed in user.
func (s *Service) Me(c fiber.Ctx) error {
	user, err := s.users.GetUserByID(s.userID(c))
	if err != nil {
		return accountError(c, err, "failed to load user")
	}

	return c.JSON(user)
}

// Password changes the password of the signed in user.
func (s *Service) Password(c fiber.Ctx) error {
	var req PasswordRequest
	if err := handler.Bind(c, s.validator, &req); err != nil {
		return err
	}

	if err := s.users.ChangePassword(s.userID(c), req.OldPassword, req.NewPassword); err != nil {
		return accountError(c, err, "failed to change password")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SetupTOTP generates a new second factor secret.
func (s *Service) SetupTOTP(c fiber.Ctx) error {
	setup, err := s.users.SetupTOTP(s.userID(c), s.cfg.TOTPIssuer)
	if err != nil {
		return accountError(c, err, "failed to set up totp")
	}

	return c.JSON(setup)
}

// EnableTOTP activates the second factor.
func (s *Service) EnableTOTP(c fiber.Ctx) error {
	var req CodeRequest
	if err := handler.Bind(c, s.validator, &req); err != nil {
		return err
	}

	if err := s.users.EnableTOTP(s.userID(c), req.Code); err != nil {
		return accountError(c, err, "failed to enable totp")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DisableTOTP removes the second factor.
func (s *Service) DisableTOTP(c fiber.Ctx) error {
	var req PasswordConfirmRequest
	if err := handler.Bind(c, s.validator, &req); err != nil {
		return err
	}

	if err := s.users.DisableTOTP(s.userID(c), req.Password); err != nil {
		return accountError(c, err, "failed to disable totp")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
