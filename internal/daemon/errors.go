package daemon

import "errors"

var (
	// ErrConfigNil is returned when the daemon is created without a config.
	ErrConfigNil = errors.New("config is nil")
	// ErrSQLitePathEmpty is returned when the sqlite engine is selected without DB.Path.
	ErrSQLitePathEmpty = errors.New("sqlite engine needs DB.Path")
)
