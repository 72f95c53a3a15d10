package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	apperrors "whitelist-bot/internal/common/errors"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port               int    `env:"PORT" envDefault:"10000"`
		CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	}

	Telegram struct {
		BotToken    string        `env:"TELEGRAM_TOKEN,required"`
		APIBaseURL  string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
		PollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"30s"`
		InitDataTTL time.Duration `env:"INIT_DATA_TTL" envDefault:"24h"`
		AdminIDs    []string      `env:"ADMIN_IDS" envSeparator:","`
		Workers     int           `env:"BOT_WORKERS" envDefault:"16"`
	}

	Storage struct {
		Driver      string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
		SQLitePath  string `env:"DB_PATH" envDefault:"whitelist.db"`
		DatabaseURL string `env:"DATABASE_URL"`
		AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	}

	Redis struct {
		Addr     string        `env:"REDIS_ADDR"`
		Password string        `env:"REDIS_PASSWORD"`
		DB       int           `env:"REDIS_DB" envDefault:"0"`
		CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"1m"`
	}

	Session struct {
		TTL time.Duration `env:"SESSION_TTL" envDefault:"15m"`
	}

	Export struct {
		Dir string `env:"EXPORT_DIR"`
	}

	// Admins is derived from Telegram.AdminIDs.
	Admins AdminSet
}

// AdminSet is the static administrator allow-list.
type AdminSet map[int64]struct{}

// NewAdminSet builds a set from ids.
func NewAdminSet(ids ...int64) AdminSet {
	s := make(AdminSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is an administrator.
func (s AdminSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// ParseAdminIDs parses comma separated entries, ignoring blanks.
func ParseAdminIDs(raw []string) (AdminSet, error) {
	set := make(AdminSet, len(raw))
	for _, entry := range raw {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, err := strconv.ParseInt(entry, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin id %q: %w", entry, err)
		}
		set[id] = struct{}{}
	}
	return set, nil
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()
	return parse(env.Options{})
}

// LoadFrom parses configuration from an explicit environment map.
func LoadFrom(environment map[string]string) (*Config, error) {
	if environment == nil {
		environment = map[string]string{}
	}
	return parse(env.Options{Environment: environment})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, apperrors.NewConfigurationError("parse environment", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return apperrors.NewConfigurationError("TELEGRAM_TOKEN is empty", nil)
	}

	admins, err := ParseAdminIDs(c.Telegram.AdminIDs)
	if err != nil {
		return apperrors.NewConfigurationError("ADMIN_IDS", err)
	}
	c.Admins = admins

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return apperrors.NewConfigurationError("DB_PATH is required for the sqlite driver", nil)
		}
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return apperrors.NewConfigurationError("DATABASE_URL is required for the postgres driver", nil)
		}
	case DriverRedis:
		if c.Redis.Addr == "" {
			return apperrors.NewConfigurationError("REDIS_ADDR is required for the redis driver", nil)
		}
	case DriverMemory:
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unknown STORAGE_DRIVER %q", c.Storage.Driver), nil)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.NewConfigurationError(fmt.Sprintf("invalid PORT %d", c.Server.Port), nil)
	}
	if c.Telegram.Workers <= 0 {
		return apperrors.NewConfigurationError("BOT_WORKERS must be positive", nil)
	}
	if c.Session.TTL <= 0 {
		return apperrors.NewConfigurationError("SESSION_TTL must be positive", nil)
	}
	return nil
}
