package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "whitelist-bot/internal/domain/wallet"
)

// WalletCache provides Redis-based caching for wallet lookups.
type WalletCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewWalletCache(client goredis.Cmdable, ttl time.Duration) *WalletCache {
	return &WalletCache{client: client, ttl: ttl}
}

func (c *WalletCache) key(userID int64) string { return fmt.Sprintf("whitelist:cache:%d", userID) }

// Set stores the record under its user id.
func (c *WalletCache) Set(ctx context.Context, rec *domain.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(rec.UserID), b, c.ttl).Err()
}

// Get returns the cached record; (nil, nil) on a cache miss.
func (c *WalletCache) Get(ctx context.Context, userID int64) (*domain.Record, error) {
	v, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.Record
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Invalidate removes the cached entry for the user.
func (c *WalletCache) Invalidate(ctx context.Context, userID int64) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}
