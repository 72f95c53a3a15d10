package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"whitelist-bot/internal/common/config"
	apperrors "whitelist-bot/internal/common/errors"
	domain "whitelist-bot/internal/domain/wallet"
	"whitelist-bot/internal/platform/metrics"
)

// Header is the fixed first row of every export.
var Header = []string{"tg_id", "username", "display_name", "wallet", "updated_at"}

// Lister enumerates the registry newest first.
type Lister interface {
	List(ctx context.Context) ([]domain.Record, error)
}

// Snapshot is one produced export.
type Snapshot struct {
	Filename  string
	Content   []byte
	Rows      int
	CreatedAt time.Time
	// Path is set when the snapshot was also written to the export directory.
	Path string
}

type Service struct {
	store   Lister
	admins  config.AdminSet
	dir     string
	clock   func() time.Time
	metrics *metrics.Metrics
	log     zerolog.Logger
}

type Option func(*Service)

// WithDirectory also writes every snapshot into dir.
func WithDirectory(dir string) Option {
	return func(s *Service) { s.dir = dir }
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

func NewService(store Lister, admins config.AdminSet, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("wallet store is required")
	}
	s := &Service{
		store:  store,
		admins: admins,
		clock:  time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// IsAdmin reports whether userID may export.
func (s *Service) IsAdmin(userID int64) bool {
	return s.admins.Contains(userID)
}

// Export produces a snapshot of the whole registry for requesterID. Callers
// outside the admin set get an Unauthorized error and nothing is read.
func (s *Service) Export(ctx context.Context, requesterID int64) (*Snapshot, error) {
	if !s.IsAdmin(requesterID) {
		s.metrics.IncExport(metrics.ExportUnauthorized)
		s.log.Warn().Int64("user_id", requesterID).Msg("Export denied")
		return nil, apperrors.NewUnauthorizedError("export is restricted to administrators").WithUserID(requesterID)
	}

	records, err := s.store.List(ctx)
	if err != nil {
		s.metrics.IncExport(metrics.ExportFailed)
		if !apperrors.IsStorage(err) {
			err = apperrors.NewStorageError("list", err)
		}
		return nil, err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		s.metrics.IncExport(metrics.ExportFailed)
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode export")
	}

	now := s.clock().UTC()
	snap := &Snapshot{
		Filename:  Filename(now),
		Content:   buf.Bytes(),
		Rows:      len(records),
		CreatedAt: now,
	}

	if s.dir != "" {
		path, err := writeAtomic(s.dir, snap.Filename, snap.Content)
		if err != nil {
			s.metrics.IncExport(metrics.ExportFailed)
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "write export file")
		}
		snap.Path = path
	}

	s.metrics.IncExport(metrics.ExportOK)
	s.log.Info().
		Int64("user_id", requesterID).
		Int("rows", snap.Rows).
		Str("filename", snap.Filename).
		Msg("Export created")
	return snap, nil
}

// Filename returns a name unique per call, ordered by creation time.
func Filename(now time.Time) string {
	return fmt.Sprintf("whitelist_export_%s_%s.csv",
		now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// WriteCSV writes the header followed by one row per record, in order.
func WriteCSV(w io.Writer, records []domain.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.UserID, 10),
			rec.Username,
			rec.DisplayName,
			rec.WalletAddress,
			domain.FormatTime(rec.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeAtomic(dir, name string, content []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}
	return path, nil
}
