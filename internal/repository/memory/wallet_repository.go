package memory

import (
	"context"
	"sort"
	"sync"

	domain "whitelist-bot/internal/domain/wallet"
)

// WalletRepository keeps records in process memory. Used by tests and the
// "memory" storage driver; nothing survives a restart.
type WalletRepository struct {
	mu      sync.RWMutex
	records map[int64]domain.Record
}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{records: make(map[int64]domain.Record)}
}

var _ domain.Repository = (*WalletRepository)(nil)

func (r *WalletRepository) Get(_ context.Context, userID int64) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *WalletRepository) Upsert(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := *rec
	next.UpdatedAt = domain.Truncate(next.UpdatedAt)
	if prev, ok := r.records[rec.UserID]; ok && prev.UpdatedAt.After(next.UpdatedAt) {
		next.UpdatedAt = prev.UpdatedAt
	}
	r.records[rec.UserID] = next
	return nil
}

func (r *WalletRepository) List(_ context.Context) ([]domain.Record, error) {
	r.mu.RLock()
	out := make([]domain.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return domain.Newer(out[i], out[j]) })
	return out, nil
}

func (r *WalletRepository) Ping(context.Context) error { return nil }
