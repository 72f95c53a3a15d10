package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "whitelist-bot/internal/domain/wallet"
)

const schema = `
CREATE TABLE IF NOT EXISTS whitelist (
	tg_id INTEGER PRIMARY KEY,
	username TEXT,
	display_name TEXT,
	wallet TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_whitelist_updated_at ON whitelist(updated_at DESC, tg_id DESC);
`

const walletColumns = `tg_id, COALESCE(username, ''), COALESCE(display_name, ''), COALESCE(wallet, ''), updated_at`

// WalletRepository stores the whitelist table in SQLite.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository creates the schema if missing and rewrites updated_at
// values left in other formats, so that text order stays time order.
func NewWalletRepository(ctx context.Context, db *sql.DB) (*WalletRepository, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create whitelist schema: %w", err)
	}
	if err := normalizeTimestamps(ctx, db); err != nil {
		return nil, fmt.Errorf("normalize updated_at: %w", err)
	}
	return &WalletRepository{db: db}, nil
}

// normalizeTimestamps converts zone-less or missing updated_at values into
// TimeLayout. A missing value becomes the Unix epoch.
func normalizeTimestamps(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT tg_id, COALESCE(updated_at, '') FROM whitelist`)
	if err != nil {
		return err
	}
	fixed := make(map[int64]string)
	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return err
		}
		if domain.IsCanonicalTime(raw) {
			continue
		}
		ts := time.Unix(0, 0)
		if raw != "" {
			if ts, err = domain.ParseTime(raw); err != nil {
				rows.Close()
				return fmt.Errorf("tg_id %d: parse %q: %w", id, raw, err)
			}
		}
		fixed[id] = domain.FormatTime(ts)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	if len(fixed) == 0 {
		return nil
	}

	for id, ts := range fixed {
		if _, err := tx.ExecContext(ctx, `UPDATE whitelist SET updated_at = ? WHERE tg_id = ?`, ts, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var _ domain.Repository = (*WalletRepository)(nil)

func scanRecord(scanner interface{ Scan(...any) error }) (*domain.Record, error) {
	var (
		rec       domain.Record
		updatedAt string
	)
	if err := scanner.Scan(&rec.UserID, &rec.Username, &rec.DisplayName, &rec.WalletAddress, &updatedAt); err != nil {
		return nil, err
	}
	ts, err := domain.ParseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	rec.UpdatedAt = ts
	return &rec, nil
}

// Get returns the record for userID, or nil when there is none.
func (r *WalletRepository) Get(ctx context.Context, userID int64) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM whitelist WHERE tg_id = ?`, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return rec, nil
}

// Upsert inserts or replaces the row for rec.UserID in one statement.
func (r *WalletRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	const q = `
INSERT INTO whitelist (tg_id, username, display_name, wallet, updated_at)
VALUES (?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)
ON CONFLICT(tg_id) DO UPDATE SET
	username = excluded.username,
	display_name = excluded.display_name,
	wallet = excluded.wallet,
	updated_at = MAX(whitelist.updated_at, excluded.updated_at)`
	_, err := r.db.ExecContext(ctx, q,
		rec.UserID,
		rec.Username,
		rec.DisplayName,
		rec.WalletAddress,
		domain.FormatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert wallet: %w", err)
	}
	return nil
}

// List returns all rows, newest first.
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
