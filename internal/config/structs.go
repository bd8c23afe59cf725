package config

import (
	"time"

	"github.com/inkpress/inkpress/internal/logger"
)

// Database engines supported by DB.Engine.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// Upload backends supported by Upload.Backend.
const (
	UploadBackendLocal = "local"
	UploadBackendS3    = "s3"
)

// Config overall data structure.
type Config struct {
	DevMode    bool // enable dev mode for development
	Title      string
	DB         DB
	Log        logger.Log
	Webserver  Webserver
	Auth       Auth
	Publisher  Publisher
	Revalidate Revalidate
	Upload     Upload
	Analytics  Analytics
	Metrics    Metrics
}

// DB holds the database configuration settings.
type DB struct {
	Engine       string // mysql, postgres or sqlite
	Extras       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	Path         string // sqlite database file
	MaxOpenConns int
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool     // disable recover middleware
	Port           int      // listening port for the webserver
	ShutDownTime   int      // seconds to keep answering 503 on /health before shutdown
	URL            string   // base url for the webserver
	BodyLimit      int      // max request body in bytes
	CORSOrigins    []string // allowed origins for the frontend
	CheckAliveURI  string   // health endpoint, not access logged when Log.DisableCheckAlive is set
}

// Auth holds JWT and account bootstrap settings.
type Auth struct {
	JWTSecret           string
	TokenTTL            time.Duration
	Issuer              string
	RegistrationEnabled bool
	TOTPIssuer          string
	SeedAdminEmail      string
	SeedAdminPassword   string
	SeedAdminName       string
}

// Publisher holds the scheduled publication sweep settings.
type Publisher struct {
	Enabled  bool
	Interval time.Duration
}

// Revalidate holds the frontend cache revalidation settings.
type Revalidate struct {
	Enabled         bool
	FrontendURL     string
	Secret          string
	Path            string
	Timeout         time.Duration
	BreakerFailures uint32        // consecutive failures before calls are skipped, 0 sends every call
	BreakerCooldown time.Duration // how long calls are skipped once the breaker is open
}

// S3 holds object storage settings for the s3 upload backend.
type S3 struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	UsePathStyle    bool
}

// Upload holds image pipeline settings.
type Upload struct {
	Backend   string
	Dir       string
	PublicURL string
	MaxBytes  int64
	Widths    []int
	Quality   int
	S3        S3
}

// Analytics holds event collector settings.
type Analytics struct {
	Enabled       bool
	RateLimit     int
	RateWindow    time.Duration
	IgnoredIPs    []string
	SharedLimiter bool   // keep the rate limit table in the database instead of process memory
	LimiterTable  string // table used by the shared limiter
}

// Metrics holds the prometheus endpoint settings.
type Metrics struct {
	Enabled bool
	Path    string
}
