package wallet

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "whitelist-bot/internal/common/errors"
	"whitelist-bot/internal/common/validation"
	domain "whitelist-bot/internal/domain/wallet"
	"whitelist-bot/internal/platform/metrics"
)

// Cache is an optional read-through cache for Get.
type Cache interface {
	Get(ctx context.Context, userID int64) (*domain.Record, error)
	Set(ctx context.Context, rec *domain.Record) error
	Invalidate(ctx context.Context, userID int64) error
}

// Service is the wallet store used by the bot: it validates and timestamps
// writes, and reports every repository failure as a StorageError.
type Service struct {
	repo    domain.Repository
	cache   Cache
	clock   func() time.Time
	metrics *metrics.Metrics
	log     zerolog.Logger

	// stale holds user ids whose cache entry could be neither replaced nor
	// removed after a write; Get bypasses the cache for them.
	stale sync.Map
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(repo domain.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("wallet repository is required")
	}
	s := &Service{
		repo:  repo,
		clock: time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *Service) observe(op string, start time.Time) {
	s.metrics.ObserveStore(op, time.Since(start))
}

// Get returns the user's record or nil when none exists.
func (s *Service) Get(ctx context.Context, userID int64) (*domain.Record, error) {
	if _, skip := s.stale.Load(userID); s.cache != nil && !skip {
		if rec, err := s.cache.Get(ctx, userID); err == nil && rec != nil {
			return rec, nil
		} else if err != nil {
			s.log.Warn().Err(err).Int64("user_id", userID).Msg("wallet cache read failed")
		}
	}

	defer s.observe("get", time.Now())
	rec, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.NewStorageError("get", err).WithUserID(userID)
	}
	if rec != nil && s.cache != nil {
		if err := s.cache.Set(ctx, rec); err != nil {
			s.log.Warn().Err(err).Int64("user_id", userID).Msg("wallet cache write failed")
		} else {
			s.stale.Delete(userID)
		}
	}
	return rec, nil
}

// Upsert stores rec with a trimmed address and UpdatedAt set to now. An
// address that fails validation is never written.
func (s *Service) Upsert(ctx context.Context, rec *domain.Record) error {
	if rec == nil {
		return errors.New("nil wallet record")
	}
	if err := validation.ValidateAddress(rec.WalletAddress); err != nil {
		return err
	}
	rec.WalletAddress = validation.NormalizeAddress(rec.WalletAddress)
	rec.UpdatedAt = domain.Truncate(s.clock())

	start := time.Now()
	err := s.repo.Upsert(ctx, rec)
	s.observe("upsert", start)
	if err != nil {
		return apperrors.NewStorageError("upsert", err).WithUserID(rec.UserID)
	}

	s.refreshCache(ctx, rec)
	return nil
}

// refreshCache replaces the cached entry with rec, falling back to removing
// it. When both fail the user is marked stale until a later Get refills it.
func (s *Service) refreshCache(ctx context.Context, rec *domain.Record) {
	if s.cache == nil {
		return
	}
	setErr := s.cache.Set(ctx, rec)
	if setErr == nil {
		s.stale.Delete(rec.UserID)
		return
	}
	if err := s.cache.Invalidate(ctx, rec.UserID); err != nil {
		s.stale.Store(rec.UserID, struct{}{})
		s.log.Error().Err(err).AnErr("set_error", setErr).Int64("user_id", rec.UserID).
			Msg("wallet cache refresh failed, bypassing cache for user")
		return
	}
	s.stale.Delete(rec.UserID)
	s.log.Warn().Err(setErr).Int64("user_id", rec.UserID).Msg("wallet cache write failed, entry invalidated")
}

// List returns every record, newest first. It always reads the repository.
func (s *Service) List(ctx context.Context) ([]domain.Record, error) {
	defer s.observe("list", time.Now())
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list", err)
	}
	return records, nil
}

// Ping checks that the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return apperrors.NewStorageError("ping", err)
	}
	return nil
}
