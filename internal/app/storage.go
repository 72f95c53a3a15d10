package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	rcache "whitelist-bot/internal/cache/redis"
	"whitelist-bot/internal/common/config"
	apperrors "whitelist-bot/internal/common/errors"
	domain "whitelist-bot/internal/domain/wallet"
	"whitelist-bot/internal/platform/db"
	redisp "whitelist-bot/internal/platform/redis"
	"whitelist-bot/internal/repository/memory"
	pgrepo "whitelist-bot/internal/repository/postgres"
	redisrepo "whitelist-bot/internal/repository/redis"
	sqliterepo "whitelist-bot/internal/repository/sqlite"
)

// Storage is the opened wallet backend plus the optional Redis cache.
type Storage struct {
	Repository domain.Repository
	Cache      *rcache.WalletCache

	closers []func() error
}

// Close releases every connection opened by OpenStorage.
func (s *Storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenStorage connects the backend selected by STORAGE_DRIVER. A SQL backend
// gets a Redis read-through cache when REDIS_ADDR is set.
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	s := &Storage{}
	var rc *redisp.Client

	openRedis := func() error {
		if rc != nil {
			return nil
		}
		c, err := redisp.Open(ctx, redisp.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return apperrors.NewStorageError("connect redis", err)
		}
		rc = c
		s.closers = append(s.closers, c.Close)
		return nil
	}

	fail := func(err error) (*Storage, error) {
		_ = s.Close()
		return nil, err
	}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return fail(apperrors.NewStorageError("open sqlite", err))
		}
		s.closers = append(s.closers, conn.Close)
		repo, err := sqliterepo.NewWalletRepository(ctx, conn)
		if err != nil {
			return fail(apperrors.NewStorageError("create sqlite schema", err))
		}
		s.Repository = repo
		log.Info().Str("path", cfg.Storage.SQLitePath).Msg("SQLite wallet store ready")

	case config.DriverPostgres:
		if cfg.Storage.AutoMigrate {
			if err := db.MigratePostgres(cfg.Storage.DatabaseURL, pgrepo.Migrations, "migrations"); err != nil {
				return fail(apperrors.NewStorageError("migrate postgres", err))
			}
			log.Info().Msg("Postgres migrations applied")
		}
		conn, err := db.OpenPostgres(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return fail(apperrors.NewStorageError("open postgres", err))
		}
		s.closers = append(s.closers, conn.Close)
		s.Repository = pgrepo.NewWalletRepository(conn)
		log.Info().Msg("Postgres wallet store ready")

	case config.DriverRedis:
		if err := openRedis(); err != nil {
			return fail(err)
		}
		s.Repository = redisrepo.NewWalletRepository(rc.Client)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Redis wallet store ready")

	case config.DriverMemory:
		s.Repository = memory.NewWalletRepository()
		log.Warn().Msg("Using in-memory wallet store; records are lost on restart")

	default:
		return fail(apperrors.NewConfigurationError("unknown STORAGE_DRIVER "+cfg.Storage.Driver, nil))
	}

	if cfg.Redis.Addr != "" && cfg.Storage.Driver != config.DriverRedis && cfg.Storage.Driver != config.DriverMemory {
		if err := openRedis(); err != nil {
			return fail(err)
		}
		s.Cache = rcache.NewWalletCache(rc.Client, cfg.Redis.CacheTTL)
		log.Info().Dur("ttl", cfg.Redis.CacheTTL).Msg("Redis wallet cache enabled")
	}

	return s, nil
}
