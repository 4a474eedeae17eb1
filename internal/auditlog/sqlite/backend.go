// Package sqlite provides a SQLite-backed audit log backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/storage"
)

const (
	KeyPath        = "path"
	KeyJournalMode = "journal_mode"
	KeyBusyTimeout = "busy_timeout"
)

func init() {
	auditlog.Register("sqlite", NewFactory, Defaults)
}

// Defaults returns the default configuration for the SQLite backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:        "audit.db",
		KeyJournalMode: "wal",
		KeyBusyTimeout: "5000",
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS audit (
    id            TEXT PRIMARY KEY,
    request_id    TEXT NOT NULL DEFAULT '',
    session_id    TEXT NOT NULL DEFAULT '',
    request_type  TEXT NOT NULL,
    intent        TEXT NOT NULL DEFAULT '',
    handler       TEXT NOT NULL DEFAULT '',
    outcome       TEXT NOT NULL,
    speech        TEXT NOT NULL DEFAULT '',
    error         TEXT NOT NULL DEFAULT '',
    timestamp     INTEGER NOT NULL,
    duration_ns   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_audit_ts ON audit(timestamp DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_audit_type_ts ON audit(request_type, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_intent_ts ON audit(intent, timestamp DESC);
`

// NewFactory creates a new SQLite backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (auditlog.Backend, error) {
	set := storage.NewSettings("sqlite", config)
	path, err := set.Required(KeyPath)
	if err != nil {
		return nil, err
	}
	memory := path == ":memory:"
	if !memory {
		if path, err = set.Path(KeyPath); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, set.Fail(KeyPath, "failed to create directory", err)
		}
	}

	journalMode := set.String(KeyJournalMode, "wal")
	busyTimeout, err := set.Int(KeyBusyTimeout, 5000, 0)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout))
	if !memory {
		q.Add("_pragma", fmt.Sprintf("journal_mode(%s)", journalMode))
	}
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, set.Fail(KeyPath, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, set.Fail(KeyPath, "failed to initialize schema", err)
	}

	slog.Info("sqlite auditlog initialized", "path", path, "journal_mode", journalMode)
	return &Backend{db: db}, nil
}

// Backend is a SQLite implementation of auditlog.Backend.
type Backend struct {
	db     *sql.DB
	closed atomic.Bool
}

// Put inserts a record, replacing any record with the same id.
func (b *Backend) Put(ctx context.Context, rec *auditlog.Record) error {
	if b.closed.Load() {
		return auditlog.ErrClosed
	}
	if err := auditlog.Validate(rec); err != nil {
		return err
	}

	_, err := b.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit
		 (id, request_id, session_id, request_type, intent, handler, outcome, speech, error, timestamp, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RequestID, rec.SessionID, rec.RequestType, rec.Intent, rec.Handler,
		rec.Outcome, rec.Speech, rec.Error, rec.Timestamp.UnixNano(), int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// List returns matching records, newest first.
func (b *Backend) List(ctx context.Context, opts auditlog.QueryOptions) ([]*auditlog.Record, error) {
	if b.closed.Load() {
		return nil, auditlog.ErrClosed
	}

	var where []string
	var args []any
	if opts.RequestType != "" {
		where = append(where, "request_type = ?")
		args = append(args, opts.RequestType)
	}
	if opts.Intent != "" {
		where = append(where, "intent = ?")
		args = append(args, opts.Intent)
	}
	if !opts.Before.IsZero() {
		where = append(where, "timestamp < ?")
		args = append(args, opts.Before.UnixNano())
	}
	if !opts.After.IsZero() {
		where = append(where, "timestamp > ?")
		args = append(args, opts.After.UnixNano())
	}

	query := `SELECT id, request_id, session_id, request_type, intent, handler, outcome, speech, error, timestamp, duration_ns FROM audit`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, opts.EffectiveLimit())

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	var out []*auditlog.Record
	for rows.Next() {
		var rec auditlog.Record
		var ts, dur int64
		if err := rows.Scan(&rec.ID, &rec.RequestID, &rec.SessionID, &rec.RequestType, &rec.Intent,
			&rec.Handler, &rec.Outcome, &rec.Speech, &rec.Error, &ts, &dur); err != nil {
			return nil, fmt.Errorf("sqlite list: scan: %w", err)
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		rec.Duration = time.Duration(dur)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	return out, nil
}

// Count returns the number of stored records.
func (b *Backend) Count(ctx context.Context) (int, error) {
	if b.closed.Load() {
		return 0, auditlog.ErrClosed
	}
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.db.Close()
}
