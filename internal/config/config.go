// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/product-catalog-api/internal/model"
)

// Config holds all runtime configuration values.
type Config struct {
	Env  string // application environment (dev, test, prod)
	Port string // HTTP port to listen on

	DB DBConfig

	JWTSecret  string
	JWTTTL     time.Duration
	JWTIssuer  string // empty skips the iss claim
	BcryptCost int

	MigrateOnStart bool
	WriteRoles     []model.Role // roles admitted to catalog writes

	BrokerURL   string // empty disables event publishing
	EventLogDir string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// DBConfig is the MySQL connection target.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Load reads a .env file when present and then the process environment.
// Every missing or malformed required variable is reported in one error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	var l loader
	cfg := Config{
		Env:  l.must("APP_ENV"),
		Port: l.must("APP_PORT"),
		DB: DBConfig{
			User: l.must("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: l.must("DB_HOST"),
			Port: l.must("DB_PORT"),
			Name: l.must("DB_NAME"),
		},
		JWTSecret:      l.must("JWT_SECRET"),
		JWTTTL:         time.Duration(l.intOr("JWT_TTL_MIN", 60)) * time.Minute,
		JWTIssuer:      os.Getenv("JWT_ISSUER"),
		BcryptCost:     l.intOr("BCRYPT_COST", bcrypt.DefaultCost),
		MigrateOnStart: envBool("MIGRATE_ON_START", true),
		BrokerURL:      envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventLogDir:    envStr("EVENT_LOG_DIR", "logs"),
		Redis:          LoadRedisConfig(),
		RateLimit:      LoadRateLimitConfig(),
		Cache:          LoadCacheConfig(),
	}

	roles, err := model.ParseRoles(envStr("CATALOG_WRITE_ROLES", "admin,user,client"))
	switch {
	case err != nil:
		l.fail(fmt.Errorf("CATALOG_WRITE_ROLES: %w", err))
	case len(roles) == 0:
		l.fail(errors.New("CATALOG_WRITE_ROLES: no roles"))
	}
	cfg.WriteRoles = roles

	if cfg.JWTTTL <= 0 {
		l.fail(errors.New("JWT_TTL_MIN must be positive"))
	}

	if err := errors.Join(l.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loader accumulates failures so a misconfigured deployment sees them all.
type loader struct {
	errs []error
}

func (l *loader) fail(err error) { l.errs = append(l.errs, err) }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		l.fail(fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// intOr is like envInt but reports malformed values instead of ignoring them.
func (l *loader) intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(fmt.Errorf("invalid int for %s: %q", key, v))
		return def
	}
	return n
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(os.Getenv(k)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
