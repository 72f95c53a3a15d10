//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	rcache "whitelist-bot/internal/cache/redis"
	domain "whitelist-bot/internal/domain/wallet"
	"whitelist-bot/internal/testutil/containers"
)

func TestWalletCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	cache := rcache.NewWalletCache(rc.Client, time.Minute)

	miss, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, miss)

	rec := &domain.Record{
		UserID:        1,
		Username:      "alice",
		WalletAddress: "3N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE",
		UpdatedAt:     time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.Set(ctx, rec))

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rec.WalletAddress, got.WalletAddress)
	require.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))

	ttl, err := rc.Client.TTL(ctx, "whitelist:cache:1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, 1))
	got, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, got)
}
