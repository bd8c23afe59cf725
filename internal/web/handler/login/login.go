package login

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/db/models"
	"github.com/inkpress/inkpress/internal/web/handler"
)

const (
	// Path is the path to the login endpoint.
	Path = handler.APIPath + "/auth/login"

	// MaxAttempts is the number of login requests a client may send per AttemptWindow.
	MaxAttempts = 10
	// AttemptWindow is the window of the login rate limit.
	AttemptWindow = time.Minute
)

// Request is the login body.
type Request struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=256"`
	OTP      string `json:"otp"      validate:"omitempty,numeric,len=6"`
}

// Response is returned on a successful login.
type Response struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// Service is the login handler service.
type Service struct {
	handler.Service
	jwt       *auth.JWTManager
	users     *auth.LocalProvider
	validator *validator.Validate
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || deps == nil || deps.JWT == nil || deps.Users == nil {
		return handler.ErrNilDeps
	}

	s.jwt = deps.JWT
	s.users = deps.Users
	s.validator = deps.Validator

	if s.validator == nil {
		s.validator = handler.NewValidator()
	}

	app.Post(Path, limiter.New(limiter.Config{
		Max:        MaxAttempts,
		Expiration: AttemptWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return "login:" + c.IP()
		},
		LimitReached: func(_ fiber.Ctx) error {
			return fiber.NewError(fiber.StatusTooManyRequests, ErrTooManyAttempts.Error())
		},
		Storage: deps.Limiter,
	}), s.Post)

	return nil
}

// Post checks the credentials and issues a token.
func (s *Service) Post(c fiber.Ctx) error {
	var req Request

	if err := c.Bind().Body(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrInvalidFormData.Error())
	}

	if err := handler.Validate(s.validator, &req); err != nil {
		return err
	}

	user, err := s.users.Authenticate(req.Email, req.Password, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidOTP):
			log.Info().Str("email", auth.NormalizeEmail(req.Email)).Str("ip", c.IP()).Msg("failed login")

			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, auth.ErrOTPRequired):
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, auth.ErrUserAccountDisabled):
			return fiber.NewError(fiber.StatusForbidden, err.Error())
		default:
			return handler.Internal(c, err, ErrInternalServerError.Error())
		}
	}

	token, expiresAt, err := s.jwt.GenerateToken(user)
	if err != nil {
		return handler.Internal(c, err, ErrInternalServerError.Error())
	}

	log.Info().Uint64("user_id", user.ID).Str("ip", c.IP()).Msg("user logged in")

	return c.JSON(Response{Token: token, ExpiresAt: expiresAt, User: user})
}
