package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "whitelist-bot/internal/common/errors"
	domain "whitelist-bot/internal/domain/wallet"
	"whitelist-bot/internal/platform/metrics"
	"whitelist-bot/internal/repository/memory"
)

const (
	addr     = "3N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE"
	nextAddr = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Get(ctx context.Context, userID int64) (*domain.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Record), args.Error(1)
}

func (m *mockRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockRepository) List(ctx context.Context) ([]domain.Record, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Record), args.Error(1)
}

func (m *mockRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mapCache struct {
	mu          sync.Mutex
	items       map[int64]domain.Record
	invalidated []int64
	getErr      error
	setErr      error
	dropErr     error
}

func newMapCache() *mapCache { return &mapCache{items: make(map[int64]domain.Record)} }

func (c *mapCache) Get(_ context.Context, userID int64) (*domain.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	rec, ok := c.items[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (c *mapCache) Set(_ context.Context, rec *domain.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.items[rec.UserID] = *rec
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dropErr != nil {
		return c.dropErr
	}
	delete(c.items, userID)
	c.invalidated = append(c.invalidated, userID)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestUpsertStampsAndTrims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("CET", 3600))
	svc, err := NewService(memory.NewWalletRepository(), WithClock(fixedClock(now)))
	require.NoError(t, err)

	rec := &domain.Record{UserID: 7, Username: "alice", WalletAddress: "  " + addr + "\n"}
	require.NoError(t, svc.Upsert(context.Background(), rec))

	got, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, addr, got.WalletAddress)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, domain.Truncate(now), got.UpdatedAt)
	assert.Equal(t, time.UTC, got.UpdatedAt.Location())
}

func TestUpsertRejectsInvalidAddressWithoutWriting(t *testing.T) {
	repo := &mockRepository{}
	svc, err := NewService(repo)
	require.NoError(t, err)

	err = svc.Upsert(context.Background(), &domain.Record{UserID: 1, WalletAddress: "not-a-wallet"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestRepositoryFailuresBecomeStorageErrors(t *testing.T) {
	boom := errors.New("disk full")
	repo := &mockRepository{}
	repo.On("Get", mock.Anything, int64(3)).Return(nil, boom)
	repo.On("Upsert", mock.Anything, mock.Anything).Return(boom)
	repo.On("List", mock.Anything).Return(nil, boom)
	repo.On("Ping", mock.Anything).Return(boom)

	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Get(ctx, 3)
	assert.True(t, apperrors.IsStorage(err))
	assert.ErrorIs(t, err, boom)

	err = svc.Upsert(ctx, &domain.Record{UserID: 3, WalletAddress: addr})
	assert.True(t, apperrors.IsStorage(err))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, int64(3), appErr.UserID)

	_, err = svc.List(ctx)
	assert.True(t, apperrors.IsStorage(err))

	assert.True(t, apperrors.IsStorage(svc.Ping(ctx)))
	repo.AssertExpectations(t)
}

func TestGetMissReturnsNil(t *testing.T) {
	svc, err := NewService(memory.NewWalletRepository())
	require.NoError(t, err)

	rec, err := svc.Get(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestGetReadsThroughCache(t *testing.T) {
	repo := &mockRepository{}
	stored := &domain.Record{UserID: 9, WalletAddress: addr, UpdatedAt: time.Now().UTC()}
	repo.On("Get", mock.Anything, int64(9)).Return(stored, nil).Once()

	cache := newMapCache()
	svc, err := NewService(repo, WithCache(cache))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := svc.Get(context.Background(), 9)
		require.NoError(t, err)
		assert.Equal(t, addr, got.WalletAddress)
	}
	repo.AssertNumberOfCalls(t, "Get", 1)
}

func TestCacheErrorsFallBackToRepository(t *testing.T) {
	repo := memory.NewWalletRepository()
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")

	svc, err := NewService(repo, WithCache(cache))
	require.NoError(t, err)
	require.NoError(t, svc.Upsert(context.Background(), &domain.Record{UserID: 5, WalletAddress: addr}))

	got, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, addr, got.WalletAddress)
}

func TestUpsertWritesThroughCache(t *testing.T) {
	cache := newMapCache()
	svc, err := NewService(memory.NewWalletRepository(), WithCache(cache))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 2, WalletAddress: addr}))
	_, err = svc.Get(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 2, WalletAddress: nextAddr}))

	cached, err := cache.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, nextAddr, cached.WalletAddress)
	assert.Empty(t, cache.invalidated)
}

func TestEditVisibleWhenCacheInvalidationFails(t *testing.T) {
	cache := newMapCache()
	cache.dropErr = errors.New("redis timeout")
	svc, err := NewService(memory.NewWalletRepository(), WithCache(cache))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 4, WalletAddress: addr}))
	_, err = svc.Get(ctx, 4)
	require.NoError(t, err)

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 4, WalletAddress: nextAddr}))

	got, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, nextAddr, got.WalletAddress)
}

func TestUpsertFallsBackToInvalidateWhenCacheWriteFails(t *testing.T) {
	cache := newMapCache()
	svc, err := NewService(memory.NewWalletRepository(), WithCache(cache))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 6, WalletAddress: addr}))

	cache.setErr = errors.New("oom")
	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 6, WalletAddress: nextAddr}))
	assert.Equal(t, []int64{6}, cache.invalidated)

	got, err := svc.Get(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, nextAddr, got.WalletAddress)
}

func TestStaleEntryBypassedWhenCacheRefreshFails(t *testing.T) {
	cache := newMapCache()
	svc, err := NewService(memory.NewWalletRepository(), WithCache(cache))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 8, WalletAddress: addr}))

	cache.setErr = errors.New("read only replica")
	cache.dropErr = errors.New("read only replica")
	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 8, WalletAddress: nextAddr}))

	// The cache still holds the first address.
	cached, err := cache.Get(ctx, 8)
	require.NoError(t, err)
	require.Equal(t, addr, cached.WalletAddress)

	got, err := svc.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, nextAddr, got.WalletAddress)

	// Once the cache accepts writes again it is refilled and used.
	cache.setErr = nil
	cache.dropErr = nil
	got, err = svc.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, nextAddr, got.WalletAddress)
	cached, err = cache.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, nextAddr, cached.WalletAddress)
}

func TestListNewestFirst(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := base
	clock := func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	svc, err := NewService(memory.NewWalletRepository(), WithClock(clock))
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []int64{10, 20, 30} {
		require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: id, WalletAddress: addr}))
	}
	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 10, WalletAddress: addr}))

	all, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{10, 30, 20}, []int64{all[0].UserID, all[1].UserID, all[2].UserID})
}

func TestStoreLatencyObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc, err := NewService(memory.NewWalletRepository(), WithMetrics(m))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, &domain.Record{UserID: 1, WalletAddress: addr}))
	_, err = svc.List(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.StoreLatency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
