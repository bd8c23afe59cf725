// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"

	"github.com/inkpress/inkpress/internal/config"
)

// Create builds the Data Source Name for the configured engine.
// For sqlite it returns the database file path.
func Create(dbCfg *config.Config) string {
	switch dbCfg.DB.Engine {
	case config.EnginePostgres:
		return postgres(&dbCfg.DB)
	case config.EngineSQLite:
		return dbCfg.DB.Path
	default:
		return mysql(&dbCfg.DB)
	}
}

func mysql(db *config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.Extras,
	)

	return out
}

// postgres builds a URL style DSN which is understood by gorm's pgx driver
// and the gofiber postgres storage.
func postgres(db *config.DB) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: db.Extras,
	}

	return u.String()
}
