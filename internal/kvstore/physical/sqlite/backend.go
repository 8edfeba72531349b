// Package sqlite provides a SQLite-backed key-value storage backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/blumotif/folio/internal/kvstore/physical"
	"github.com/blumotif/folio/internal/storage"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
)

func init() {
	physical.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default configuration for the SQLite backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:        "~/.folio/folio.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS records (
    path        TEXT PRIMARY KEY,
    value       BLOB NOT NULL,
    updated_at  INTEGER NOT NULL
);
`

type row struct {
	Path      string `db:"path"`
	Value     []byte `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// NewFactory creates a new SQLite backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (physical.Backend, error) {
	path := storage.GetString(config, KeyPath, "")
	if path == "" {
		return nil, storage.NewConfigError("sqlite", KeyPath, "cannot be empty")
	}
	path = storage.ExpandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to create directory", err)
	}

	journalMode := storage.GetString(config, KeyJournalMode, "wal")
	busyTimeout := storage.GetString(config, KeyBusyTimeout, "5000")

	dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_busy_timeout=%s", path, journalMode, busyTimeout)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to open database", err)
	}

	// modernc.org/sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY under concurrent access.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storage.NewConfigErrorWithCause("sqlite", KeyPath, "failed to initialize schema", err)
	}

	slog.Info("sqlite kvstore initialized", "path", path, "journal_mode", journalMode)
	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of physical.Backend.
type Backend struct {
	db     *sqlx.DB
	closed atomic.Bool
}

func (b *Backend) Get(ctx context.Context, path string) (*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	var r row
	err := b.db.GetContext(ctx, &r, `SELECT path, value, updated_at FROM records WHERE path = ?`, path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, physical.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite get %q: %w", path, err)
	}
	return r.toRecord(), nil
}

func (b *Backend) Put(ctx context.Context, path string, value []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT INTO records (path, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		path, value, time.Now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite put %q: %w", path, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, path string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	_, err := b.db.ExecContext(ctx,
		`DELETE FROM records WHERE path = ? OR path LIKE ? ESCAPE '\'`,
		path, escapeLike(path)+"/%")
	if err != nil {
		return fmt.Errorf("sqlite delete %q: %w", path, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, path string) ([]*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	var query string
	var args []any
	if path == "" {
		query = `SELECT path, value, updated_at FROM records
		         WHERE path NOT LIKE '%/%' ORDER BY path`
	} else {
		query = `SELECT path, value, updated_at FROM records
		         WHERE path LIKE ? ESCAPE '\' AND path NOT LIKE ? ESCAPE '\' ORDER BY path`
		args = []any{escapeLike(path) + "/%", escapeLike(path) + "/%/%"}
	}

	var rows []row
	if err := b.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite list %q: %w", path, err)
	}

	out := make([]*physical.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	stats := &physical.Stats{BackendType: "sqlite"}
	err := b.db.QueryRowxContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(value)), 0) FROM records`,
	).Scan(&stats.Records, &stats.SizeBytes)
	if err != nil {
		return nil, fmt.Errorf("sqlite stats: %w", err)
	}
	return stats, nil
}

func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.db.Close()
}

func (r row) toRecord() *physical.Record {
	return &physical.Record{
		Path:      r.Path,
		Value:     r.Value,
		UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
	}
}

// escapeLike escapes LIKE wildcards in a literal path.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
