package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	domain "whitelist-bot/internal/domain/wallet"
)

const (
	indexKey        = "whitelist:index"
	maxWatchRetries = 50
)

// WalletRepository keeps each record in a hash and orders them with a sorted
// set scored by updated_at in microseconds.
type WalletRepository struct {
	client goredis.UniversalClient
}

func NewWalletRepository(client goredis.UniversalClient) *WalletRepository {
	return &WalletRepository{client: client}
}

var _ domain.Repository = (*WalletRepository)(nil)

func walletKey(userID int64) string { return fmt.Sprintf("whitelist:wallet:%d", userID) }

func decode(fields map[string]string) (*domain.Record, error) {
	id, err := strconv.ParseInt(fields["tg_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse tg_id %q: %w", fields["tg_id"], err)
	}
	ts, err := domain.ParseTime(fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", fields["updated_at"], err)
	}
	return &domain.Record{
		UserID:        id,
		Username:      fields["username"],
		DisplayName:   fields["display_name"],
		WalletAddress: fields["wallet"],
		UpdatedAt:     ts,
	}, nil
}

func (r *WalletRepository) Get(ctx context.Context, userID int64) (*domain.Record, error) {
	fields, err := r.client.HGetAll(ctx, walletKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return decode(fields)
}

// Upsert writes the hash and index entry in one MULTI under WATCH, retrying
// when another writer touched the same user in between.
func (r *WalletRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	key := walletKey(rec.UserID)
	member := strconv.FormatInt(rec.UserID, 10)

	txf := func(tx *goredis.Tx) error {
		ts := domain.Truncate(rec.UpdatedAt)
		current, err := tx.HGet(ctx, key, "updated_at").Result()
		switch {
		case errors.Is(err, goredis.Nil):
		case err != nil:
			return err
		default:
			if prev, perr := domain.ParseTime(current); perr == nil && prev.After(ts) {
				ts = prev
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key, map[string]interface{}{
				"tg_id":        member,
				"username":     rec.Username,
				"display_name": rec.DisplayName,
				"wallet":       rec.WalletAddress,
				"updated_at":   domain.FormatTime(ts),
			})
			pipe.ZAdd(ctx, indexKey, goredis.Z{Score: float64(ts.UnixMicro()), Member: member})
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return fmt.Errorf("upsert wallet: %w after %d attempts", goredis.TxFailedErr, maxWatchRetries)
}

// List reads the index newest first and fetches the hashes in one pipeline.
func (r *WalletRepository) List(ctx context.Context) ([]domain.Record, error) {
	members, err := r.client.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	records := make([]domain.Record, 0, len(members))
	if len(members) == 0 {
		return records, nil
	}

	cmds := make([]*goredis.MapStringStringCmd, len(members))
	_, err = r.client.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, member := range members {
			cmds[i] = pipe.HGetAll(ctx, "whitelist:wallet:"+member)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}

	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decode(fields)
		if err != nil {
			return nil, fmt.Errorf("list wallets: %w", err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (r *WalletRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
