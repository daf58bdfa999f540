package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret                string
	JWTAlgorithm             string
	AccessTokenExpiry        time.Duration
	TokenPasswordResetExpiry time.Duration
	// AccessTokenStoreCheck makes protected routes also require the stored
	// access token to be active, so logout revokes before natural expiry.
	AccessTokenStoreCheck bool

	// Email
	EmailFrom     string
	ResendAPIKey  string
	NotifyTimeout time.Duration

	// Observability (optional)
	SentryDSN string
}

// Load reads the environment (and .env if present) and exits the process
// when required configuration is missing or invalid.
func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := Parse(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Parse builds a Config from getenv. Every required variable that is
// missing or malformed is reported in the returned error.
func Parse(getenv func(string) string) (*Config, error) {
	p := &parser{getenv: getenv}

	cfg := &Config{
		// Application
		AppName: p.string("APP_NAME", "authgate"),
		AppEnv:  p.required("APP_ENV"), // 'development' or 'production'
		AppURL:  p.string("APP_URL", "http://localhost:3000"),
		Port:    p.string("PORT", "8000"),

		// Database
		DBDriver:     p.string("DB_DRIVER", "sqlite"),
		DBConnection: p.string("DB_CONNECTION", "./data/authgate.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		// Security
		JWTSecret:                p.required("JWT_SECRET"),
		JWTAlgorithm:             p.required("JWT_ALGORITHM"),
		AccessTokenExpiry:        p.minutes("ACCESS_TOKEN_EXPIRE_MINUTES"),
		TokenPasswordResetExpiry: p.duration("TOKEN_PASSWORD_RESET_EXPIRY", 10*time.Minute),
		AccessTokenStoreCheck:    p.bool("ACCESS_TOKEN_STORE_CHECK", true),

		// Email (RESEND_API_KEY optional in development, required in production)
		EmailFrom:     p.string("EMAIL_FROM", "noreply@example.com"),
		ResendAPIKey:  p.string("RESEND_API_KEY", ""),
		NotifyTimeout: p.duration("NOTIFY_TIMEOUT", 10*time.Second),

		// Observability
		SentryDSN: p.string("SENTRY_DSN", ""),
	}

	if cfg.JWTAlgorithm != "" {
		method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
		if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
			p.fail(fmt.Errorf("JWT_ALGORITHM %q is not a supported HMAC algorithm", cfg.JWTAlgorithm))
		}
	}

	if cfg.IsProduction() && cfg.ResendAPIKey == "" {
		p.fail(errors.New("production deployment requires RESEND_API_KEY"))
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}
	return cfg, nil
}

type parser struct {
	getenv func(string) string
	errs   []error
}

func (p *parser) fail(err error) {
	p.errs = append(p.errs, err)
}

func (p *parser) string(key, def string) string {
	value := strings.TrimSpace(p.getenv(key))
	if value == "" {
		value = def
	}
	return value
}

func (p *parser) required(key string) string {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		p.fail(fmt.Errorf("required env var %s is missing", key))
	}
	return v
}

func (p *parser) bool(key string, def bool) bool {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// minutes parses a required, positive, possibly fractional number of minutes.
func (p *parser) minutes(key string) time.Duration {
	v := p.required(key)
	if v == "" {
		return 0
	}
	m, err := strconv.ParseFloat(v, 64)
	if err != nil || m <= 0 {
		p.fail(fmt.Errorf("%s must be a positive number of minutes, got %q", key, v))
		return 0
	}
	return time.Duration(m * float64(time.Minute))
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
