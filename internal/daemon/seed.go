package daemon

import (
	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/internal/auth"
	"github.com/inkpress/inkpress/internal/config"
	"github.com/inkpress/inkpress/internal/db/models"
)

// seed creates the configured admin account when no account exists yet.
// It reports whether an account was created.
func seed(cfg config.Auth, users *auth.LocalProvider) (bool, error) {
	count, err := users.CountUsers()
	if err != nil {
		return false, err
	}

	if count > 0 {
		return false, nil
	}

	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		log.Warn().Msg("no accounts exist, the first registration becomes admin")

		return false, nil
	}

	name := cfg.SeedAdminName
	if name == "" {
		name = "Administrator"
	}

	user, err := users.CreateUser(cfg.SeedAdminEmail, cfg.SeedAdminPassword, name, models.RoleAdmin)
	if err != nil {
		return false, err
	}

	log.Warn().Str("email", user.Email).Msg("seeded admin account, change its password")

	return true, nil
}
