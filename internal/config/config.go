// Package config loads runtime settings from the environment.
//
// APP_ENV picks one of four named profiles (development, test, staging,
// production). Each profile fixes a database driver and DSN; individual
// settings can then be overridden with environment variables. A .env file
// in the working directory is read first if it exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sakif/address-book/internal/repository/sqlstore"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const (
	defaultPort         = 3000
	defaultMaxOpenConns = 10
	defaultMaxIdleConns = 2
)

// Config holds everything the binaries need to start.
type Config struct {
	Env      string
	Port     int
	LogLevel slog.Level
	Database sqlstore.Config
}

// profiles maps each environment to its database connection.
// Production has no DSN: it must come from DATABASE_URL.
var profiles = map[string]sqlstore.Config{
	EnvDevelopment: {Driver: sqlstore.DriverSQLite, DSN: "data/address_book_development.db"},
	EnvTest:        {Driver: sqlstore.DriverSQLite, DSN: ":memory:"},
	EnvStaging: {
		Driver: sqlstore.DriverPostgres,
		DSN:    "postgres://address_book_staging@localhost:5432/address_book_staging?sslmode=disable",
	},
	EnvProduction: {Driver: sqlstore.DriverPostgres},
}

// Load reads .env (if present) and builds the Config for APP_ENV.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the Config from getenv without touching the filesystem.
func FromEnv(getenv func(string) string) (Config, error) {
	env := getenv("APP_ENV")
	if env == "" {
		env = EnvDevelopment
	}

	db, ok := profiles[env]
	if !ok {
		return Config{}, fmt.Errorf("config: unknown APP_ENV %q", env)
	}
	db.MaxOpenConns = defaultMaxOpenConns
	db.MaxIdleConns = defaultMaxIdleConns

	cfg := Config{Env: env, Port: defaultPort, LogLevel: slog.LevelInfo, Database: db}
	if env == EnvDevelopment {
		cfg.LogLevel = slog.LevelDebug
	}

	var err error
	if cfg.Port, err = intVar(getenv, "PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("config: PORT %d out of range", cfg.Port)
	}

	if v := getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if cfg.Database.Driver != sqlstore.DriverSQLite && cfg.Database.Driver != sqlstore.DriverPostgres {
		return Config{}, fmt.Errorf("config: DATABASE_DRIVER %q must be %q or %q",
			cfg.Database.Driver, sqlstore.DriverSQLite, sqlstore.DriverPostgres)
	}
	if cfg.Database.DSN == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required when APP_ENV=%s", env)
	}
	if env == EnvProduction && cfg.Database.Driver == sqlstore.DriverPostgres {
		if cfg.Database.DSN, err = requireSSL(cfg.Database.DSN); err != nil {
			return Config{}, err
		}
	}

	if cfg.Database.MaxOpenConns, err = intVar(getenv, "DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxIdleConns, err = intVar(getenv, "DB_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if cfg.Database.MaxIdleConns > cfg.Database.MaxOpenConns {
		return Config{}, fmt.Errorf("config: DB_MAX_IDLE_CONNS (%d) exceeds DB_MAX_OPEN_CONNS (%d)",
			cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	}
	if v := getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("config: DB_CONN_MAX_LIFETIME %q is not a valid duration", v)
		}
		cfg.Database.ConnMaxLifetime = d
	}

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: LOG_LEVEL %q: %w", v, err)
		}
	}

	return cfg, nil
}

// JSONLogs reports whether logs should be machine-readable.
func (c Config) JSONLogs() bool {
	return c.Env == EnvStaging || c.Env == EnvProduction
}

func intVar(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config: %s %q is not a non-negative integer", key, v)
	}
	return n, nil
}

// requireSSL adds sslmode=require to a postgres URL unless it already
// names an sslmode.
func requireSSL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("config: DATABASE_URL is not a valid URL")
	}
	q := u.Query()
	if q.Get("sslmode") == "" {
		q.Set("sslmode", "require")
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
