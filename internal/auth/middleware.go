package auth

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/db/models"
)

const (
	claimsLocalKey = "auth.claims"
	bearerPrefix   = "Bearer "
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(c fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}

// ClaimsFrom returns the claims stored by RequireAuth or OptionalAuth, or nil.
func ClaimsFrom(c fiber.Ctx) *Claims {
	claims, _ := c.Locals(claimsLocalKey).(*Claims)

	return claims
}

// RequireAuth creates Fiber middleware that requires a valid bearer token.
func RequireAuth(m *JWTManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := m.ValidateToken(token)
		if err != nil {
			log.Debug().Err(err).Str("ip", c.IP()).Msg("rejected bearer token")

			return fiber.NewError(fiber.StatusUnauthorized, ErrInvalidToken.Error())
		}

		c.Locals(claimsLocalKey, claims)

		return c.Next()
	}
}

// OptionalAuth stores the claims of a valid bearer token and otherwise continues anonymously.
func OptionalAuth(m *JWTManager) fiber.Handler {
	return func(c fiber.Ctx) error {
		if token := bearerToken(c); token != "" {
			if claims, err := m.ValidateToken(token); err == nil {
				c.Locals(claimsLocalKey, claims)
			}
		}

		return c.Next()
	}
}

// RequireRole creates Fiber middleware that allows only the given roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}

		if !slices.Contains(roles, claims.Role) {
			log.Warn().Uint64("user_id", claims.UserID).Str("role", string(claims.Role)).
				Str("path", c.Path()).
				Msg("user lacks required role")

			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}

		return c.Next()
	}
}
