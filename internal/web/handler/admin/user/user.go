// Package user provides handlers for managing users (CRUD) in admin area.
package user

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.AdminPath + "/users"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
)

// CreateRequest is the body of a user creation.
type CreateRequest struct {
	Email       string      `json:"email"       validate:"required,email,max=255"`
	Password    string      `json:"password"    validate:"required,min=8,max=256"`
	DisplayName string      `json:"displayName" validate:"max=200"`
	Role        models.Role `json:"role"        validate:"required,oneof=admin editor"`
}

// ActiveRequest toggles a user account.
type ActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ListResponse is one page of users.
type ListResponse struct {
	Items      []models.User `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalPages int           `json:"totalPages"`
}

// Service provides CRUD operations for users.
type Service struct {
	handler.Service
	users     *auth.LocalProvider
	validator *validator.Validate
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.JWT == nil || deps.Users == nil {
		return handler.ErrNilDeps
	}

	s.users = deps.Users
	s.validator = deps.Validator

	if s.validator == nil {
		s.validator = handler.NewValidator()
	}

	router := deps.Protected(app, Path, models.RoleAdmin)
	router.Get(handler.RootPath, s.List)
	router.Post(handler.RootPath, s.Create)
	router.Get("/:id", s.Get)
	router.Put("/:id/active", s.SetActive)
	router.Delete("/:id", s.Delete)

	return nil
}

func userError(c fiber.Ctx, err error, msg string) error {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrEmailExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrInvalidRole):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return handler.Internal(c, err, msg)
	}
}

// List shows users with simple pagination and optional role and active filters.
func (s *Service) List(c fiber.Ctx) error {
	page := handler.QueryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := handler.QueryInt(c, "pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	var active *bool

	if v := c.Query("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "active must be a boolean")
		}

		active = &b
	}

	role := models.Role(strings.ToLower(c.Query("role")))

	users, total, err := s.users.ListUsers(role, active, pageSize, (page-1)*pageSize)
	if err != nil {
		return handler.Internal(c, err, "failed to load users")
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages == 0 {
		totalPages = 1
	}

	if users == nil {
		users = []models.User{}
	}

	return c.JSON(ListResponse{
		Items:      users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// Get returns one user.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	user, err := s.users.GetUserByID(id)
	if err != nil {
		return userError(c, err, "failed to load user")
	}

	return c.JSON(user)
}

// Create creates a new user.
func (s *Service) Create(c fiber.Ctx) error {
	var in CreateRequest
	if err := handler.Bind(c, s.validator, &in); err != nil {
		return err
	}

	user, err := s.users.CreateUser(in.Email, in.Password, strings.TrimSpace(in.DisplayName), in.Role)
	if err != nil {
		return userError(c, err, "failed to create user")
	}

	log.Info().Uint64("user_id", user.ID).Uint64("by", auth.ClaimsFrom(c).UserID).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(user)
}

// SetActive enables or disables an account. Admins can not disable themselves.
func (s *Service) SetActive(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	var in ActiveRequest
	if err = handler.Bind(c, s.validator, &in); err != nil {
		return err
	}

	if !*in.Active && id == auth.ClaimsFrom(c).UserID {
		return fiber.NewError(fiber.StatusBadRequest, "you can not disable your own account")
	}

	if err = s.users.SetActive(id, *in.Active); err != nil {
		return userError(c, err, "failed to update user")
	}

	user, err := s.users.GetUserByID(id)
	if err != nil {
		return userError(c, err, "failed to load user")
	}

	return c.JSON(user)
}

// Delete removes a user. Admins can not delete themselves.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.ParseID(c)
	if err != nil {
		return err
	}

	if id == auth.ClaimsFrom(c).UserID {
		return fiber.NewError(fiber.StatusBadRequest, "you can not delete your own account")
	}

	if err = s.users.DeleteUser(id); err != nil {
		return userError(c, err, "failed to delete user")
	}

	return c.SendStatus(fiber.StatusNoContent)
}
