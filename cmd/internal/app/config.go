package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/qrtoken"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/ratelimit"
	"github.com/fFrancko/beneficios-mvp-web/cmd/internal/storage"
)

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string `env:"BENEFICIOS_HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel  string `env:"BENEFICIOS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BENEFICIOS_LOG_FORMAT" envDefault:"json"`

	ReadHeaderTimeout time.Duration `env:"BENEFICIOS_HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `env:"BENEFICIOS_HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"BENEFICIOS_HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `env:"BENEFICIOS_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"BENEFICIOS_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxHeaderBytes    int           `env:"BENEFICIOS_HTTP_MAX_HEADER_BYTES" envDefault:"1048576"`

	// DatabaseURL empty means in-memory stores (development only).
	DatabaseURL string `env:"BENEFICIOS_DATABASE_URL"`
	DBSchema    string `env:"BENEFICIOS_DB_SCHEMA" envDefault:"public"`
	DBMaxConns  int32  `env:"BENEFICIOS_DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"BENEFICIOS_DB_MIN_CONNS" envDefault:"0"`
	AutoMigrate bool   `env:"BENEFICIOS_AUTO_MIGRATE" envDefault:"false"`

	// If true, /readyz returns 503 unless the DB is configured and reachable.
	ReadinessRequireDB bool `env:"BENEFICIOS_READINESS_REQUIRE_DB" envDefault:"false"`

	// RedisURL enables the shared verify rate limiter.
	RedisURL string `env:"BENEFICIOS_REDIS_URL"`

	// SiteURL is the public origin printed into QR links.
	SiteURL    string `env:"BENEFICIOS_SITE_URL"`
	TrustProxy bool   `env:"BENEFICIOS_TRUST_PROXY" envDefault:"false"`

	AuthJWTSecret string `env:"BENEFICIOS_AUTH_JWT_SECRET"`
	AuthAudience  string `env:"BENEFICIOS_AUTH_AUDIENCE" envDefault:"authenticated"`
	AuthIssuer    string `env:"BENEFICIOS_AUTH_ISSUER"`

	// LegacyJWTSecret enables verification of previously printed signed links.
	LegacyJWTSecret string `env:"BENEFICIOS_LEGACY_JWT_SECRET"`

	QRTokenTTL    time.Duration `env:"BENEFICIOS_QR_TOKEN_TTL" envDefault:"120s"`
	QRReuseWindow time.Duration `env:"BENEFICIOS_QR_REUSE_WINDOW" envDefault:"60s"`

	VerifyRateLimit  int           `env:"BENEFICIOS_VERIFY_RATE_LIMIT" envDefault:"30"`
	VerifyRateWindow time.Duration `env:"BENEFICIOS_VERIFY_RATE_WINDOW" envDefault:"1m"`

	AuditWriteTimeout time.Duration `env:"BENEFICIOS_AUDIT_WRITE_TIMEOUT" envDefault:"3s"`

	CORSAllowedOrigins   []string `env:"BENEFICIOS_CORS_ALLOWED_ORIGINS" envSeparator:","`
	CORSAllowCredentials bool     `env:"BENEFICIOS_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	CORSMaxAgeSeconds    int      `env:"BENEFICIOS_CORS_MAX_AGE_SECONDS" envDefault:"600"`

	FeedAllowedOrigins []string `env:"BENEFICIOS_FEED_ALLOWED_ORIGINS" envSeparator:","`
	FeedStaffKey       string   `env:"BENEFICIOS_FEED_STAFF_KEY"`

	// Security policy: when set, startup fails unless every secret is
	// configured and long enough.
	RequireSecrets bool `env:"BENEFICIOS_REQUIRE_SECRETS" envDefault:"false"`
}

// LoadConfig parses the environment and normalizes the result.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg.normalized()
}

func (c Config) normalized() (Config, error) {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.SiteURL = strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
	c.AuthAudience = strings.TrimSpace(c.AuthAudience)
	c.AuthIssuer = strings.TrimSpace(c.AuthIssuer)
	c.CORSAllowedOrigins = cleanList(c.CORSAllowedOrigins)
	c.FeedAllowedOrigins = cleanList(c.FeedAllowedOrigins)

	schema, err := storage.NormalizeSchema(c.DBSchema)
	if err != nil {
		return Config{}, fmt.Errorf("BENEFICIOS_DB_SCHEMA: %w", err)
	}
	c.DBSchema = schema

	if c.DBMaxConns < 0 {
		c.DBMaxConns = 0
	}
	if c.DBMinConns < 0 {
		c.DBMinConns = 0
	}
	if c.QRTokenTTL <= 0 {
		c.QRTokenTTL = qrtoken.DefaultTTL
	}
	if c.QRReuseWindow < 0 {
		c.QRReuseWindow = 0
	}
	if c.QRReuseWindow > c.QRTokenTTL {
		return Config{}, fmt.Errorf("BENEFICIOS_QR_REUSE_WINDOW (%s) exceeds BENEFICIOS_QR_TOKEN_TTL (%s)", c.QRReuseWindow, c.QRTokenTTL)
	}
	if c.VerifyRateLimit <= 0 {
		c.VerifyRateLimit = ratelimit.DefaultLimit
	}
	if c.VerifyRateWindow < time.Second {
		c.VerifyRateWindow = ratelimit.DefaultWindow
	}
	if c.CORSMaxAgeSeconds < 0 {
		c.CORSMaxAgeSeconds = 0
	}
	return c, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
