package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	domain "whitelist-bot/internal/domain/wallet"
)

// Migrations holds the schema for golang-migrate, rooted at "migrations".
//
//go:embed migrations/*.sql
var Migrations embed.FS

const walletColumns = `tg_id, COALESCE(username, ''), COALESCE(display_name, ''), wallet, updated_at`

// WalletRepository provides whitelist persistence in Postgres.
type WalletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) *WalletRepository { return &WalletRepository{db: db} }

var _ domain.Repository = (*WalletRepository)(nil)

func scanRecord(scanner interface{ Scan(...any) error }) (*domain.Record, error) {
	var rec domain.Record
	if err := scanner.Scan(&rec.UserID, &rec.Username, &rec.DisplayName, &rec.WalletAddress, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return &rec, nil
}

// Get returns the record by Telegram ID, or nil if not found.
func (r *WalletRepository) Get(ctx context.Context, userID int64) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM whitelist WHERE tg_id = $1`, userID)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return rec, nil
}

// Upsert inserts or updates the row keyed by tg_id. The row lock taken by
// ON CONFLICT serializes concurrent writers for the same user.
func (r *WalletRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO whitelist (tg_id, username, display_name, wallet, updated_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
ON CONFLICT (tg_id) DO UPDATE SET
	username = EXCLUDED.username,
	display_name = EXCLUDED.display_name,
	wallet = EXCLUDED.wallet,
	updated_at = GREATEST(whitelist.updated_at, EXCLUDED.updated_at)`
	_, err := r.db.ExecContext(ctx, q,
		rec.UserID,
		rec.Username,
		rec.DisplayName,
		rec.WalletAddress,
		domain.Truncate(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

// List returns every record ordered by updated_at desc.
func (r *WalletRepository) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+walletColumns+` FROM whitelist ORDER BY updated_at DESC, tg_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	records := make([]domain.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *WalletRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
