package handler

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
)

// ErrNilDeps is returned by Init when a required dependency is missing.
var ErrNilDeps = errors.New(ErrNilDepsFatalLogMsg)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	languagePattern = regexp.MustCompile(`^[a-z]{2}(?:-[A-Z]{2})?$`)
	slugInvalid     = regexp.MustCompile(`[^a-z0-9]+`)
)

// NewValidator creates a validator with the "slug" and "lang" tags registered.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("lang", func(fl validator.FieldLevel) bool {
		return IsLanguage(fl.Field().String())
	})

	return v
}

// IsLanguage reports whether s looks like "en" or "en-GB".
func IsLanguage(s string) bool {
	return languagePattern.MatchString(s)
}

// NormalizeSlug lower-cases s and collapses everything outside [a-z0-9] into single dashes.
func NormalizeSlug(s string) string {
	s = slugInvalid.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")

	return strings.Trim(s, "-")
}

// ParseID reads the numeric :id route parameter.
func ParseID(c fiber.Ctx) (uint64, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	return id, nil
}

// Bind decodes the JSON body into dst and validates it.
func Bind(c fiber.Ctx, v *validator.Validate, dst any) error {
	if err := c.Bind().Body(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return Validate(v, dst)
}

// Validate runs the struct validation of dst and converts failures to a 422 error.
func Validate(v *validator.Validate, dst any) error {
	err := v.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]

		return fiber.NewError(fiber.StatusUnprocessableEntity,
			"invalid field "+fe.Field()+": "+fe.Tag())
	}

	return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
}

// Internal logs err and returns a generic 500 error.
func Internal(c fiber.Ctx, err error, msg string) error {
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg(msg)

	return fiber.NewError(fiber.StatusInternalServerError, msg)
}

// QueryInt reads an integer query parameter, returning def when it is missing or malformed.
func QueryInt(c fiber.Ctx, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}

	return v
}
