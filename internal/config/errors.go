package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if config db.engine is not one of mysql, postgres or sqlite.
	ErrUnknownDBEngine = errors.New("config db.engine must be one of mysql, postgres, sqlite")

	// ErrJWTSecretTooShort error if config auth.jwtsecret is shorter than MinJWTSecretLen outside dev mode.
	ErrJWTSecretTooShort = errors.New("config auth.jwtsecret must be at least 32 characters")

	// ErrUnknownUploadBackend error if config upload.backend is not local or s3.
	ErrUnknownUploadBackend = errors.New("config upload.backend must be one of local, s3")

	// ErrRevalidateURLEmpty error if revalidation is enabled without a frontend url.
	ErrRevalidateURLEmpty = errors.New("config revalidate.frontendurl can not be empty when revalidation is enabled")
)
