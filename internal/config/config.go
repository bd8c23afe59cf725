// Package config handles input from etc/main.toml, environment and JSON overrides.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix of environment variables overriding single config keys,
	// e.g. INKPRESS_DB_HOST.
	EnvPrefix = "INKPRESS"

	// EnvConfigJSON holds a JSON document merged on top of the file configuration.
	EnvConfigJSON = "INKPRESS_CONFIG_JSON"

	// MinJWTSecretLen is the minimum accepted length of Auth.JWTSecret outside dev mode.
	MinJWTSecretLen = 32

	defaultShutDownTime      = 5
	defaultSweepInterval     = time.Minute
	defaultTokenTTL          = 24 * time.Hour
	defaultRevalidateTimeout = 5 * time.Second
	defaultRevalidatePath    = "/blog"
	defaultBreakerCooldown   = 30 * time.Second
	defaultUploadMaxBytes    = 10 << 20
	defaultUploadQuality     = 82
	defaultRateLimit         = 60
	defaultRateWindow        = time.Minute
	defaultLimiterTable      = "analytics_limiter"
	defaultMetricsPath       = "/metrics"
	defaultCheckAliveURI     = "/health"
	defaultBodyLimit         = 12 << 20
)

var defaultWidths = []int{480, 960, 1600} //nolint:gochecknoglobals

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(path, "main.toml"))
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read json config override")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	out, err := toml.Marshal(c)
	if err != nil {
		return "", err //nolint: wrapcheck
	}

	return string(out), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the daemon can not start without and fills defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.DB.Engine == "" {
		c.DB.Engine = EngineMySQL
	}

	if !slices.Contains([]string{EngineMySQL, EnginePostgres, EngineSQLite}, c.DB.Engine) {
		return errors.Wrap(ErrUnknownDBEngine, invalidErrMessage)
	}

	if !c.DevMode && len(c.Auth.JWTSecret) < MinJWTSecretLen {
		return errors.Wrap(ErrJWTSecretTooShort, invalidErrMessage)
	}

	if c.Revalidate.Enabled && c.Revalidate.FrontendURL == "" {
		return errors.Wrap(ErrRevalidateURLEmpty, invalidErrMessage)
	}

	if c.Upload.Backend == "" {
		c.Upload.Backend = UploadBackendLocal
	}

	if c.Upload.Backend != UploadBackendLocal && c.Upload.Backend != UploadBackendS3 {
		return errors.Wrap(ErrUnknownUploadBackend, invalidErrMessage)
	}

	setDefaults(c)

	return nil
}

func setDefaults(c *Config) { //nolint:cyclop
	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.BodyLimit == 0 {
		c.Webserver.BodyLimit = defaultBodyLimit
	}

	if c.Webserver.CheckAliveURI == "" {
		c.Webserver.CheckAliveURI = defaultCheckAliveURI
	}

	if c.Auth.TokenTTL == 0 {
		c.Auth.TokenTTL = defaultTokenTTL
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = c.Title
	}

	if c.Auth.TOTPIssuer == "" {
		c.Auth.TOTPIssuer = c.Title
	}

	if c.Publisher.Interval == 0 {
		c.Publisher.Interval = defaultSweepInterval
	}

	if c.Revalidate.Timeout == 0 {
		c.Revalidate.Timeout = defaultRevalidateTimeout
	}

	if c.Revalidate.Path == "" {
		c.Revalidate.Path = defaultRevalidatePath
	}

	if c.Revalidate.BreakerCooldown == 0 {
		c.Revalidate.BreakerCooldown = defaultBreakerCooldown
	}

	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = defaultUploadMaxBytes
	}

	if len(c.Upload.Widths) == 0 {
		c.Upload.Widths = slices.Clone(defaultWidths)
	}

	if c.Upload.Quality == 0 {
		c.Upload.Quality = defaultUploadQuality
	}

	if c.Analytics.RateLimit == 0 {
		c.Analytics.RateLimit = defaultRateLimit
	}

	if c.Analytics.RateWindow == 0 {
		c.Analytics.RateWindow = defaultRateWindow
	}

	if c.Analytics.LimiterTable == "" {
		c.Analytics.LimiterTable = defaultLimiterTable
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
}

// redactedValue replaces secrets in Redacted.
const redactedValue = "********"

// Redacted returns a copy of c with every secret replaced, safe to log or serve.
func Redacted(c Config) Config {
	for _, s := range []*string{
		&c.DB.Password,
		&c.Auth.JWTSecret,
		&c.Auth.SeedAdminPassword,
		&c.Revalidate.Secret,
		&c.Upload.S3.SecretAccessKey,
		&c.Log.DataDog.APIKey,
	} {
		if *s != "" {
			*s = redactedValue
		}
	}

	return c
}
