// Package badger provides a BadgerDB-backed audit log backend.
package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/storage"
)

// Keys sort newest first: recordPrefix + auditlog.SortKey.
const recordPrefix = "audit/"

const (
	KeyPath       = "path"
	KeySyncWrites = "sync_writes"
	KeyInMemory   = "in_memory"
	KeyTTL        = "ttl"
)

func init() {
	auditlog.Register("badger", NewFactory, Defaults)
}

// Defaults returns the default configuration for the BadgerDB backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyPath:       "audit",
		KeySyncWrites: "false",
		KeyInMemory:   "false",
		KeyTTL:        "0",
	}
}

// NewFactory creates a new BadgerDB backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (auditlog.Backend, error) {
	set := storage.NewSettings("badger", config)
	inMemory, err := set.Bool(KeyInMemory, false)
	if err != nil {
		return nil, err
	}
	ttl, err := set.Duration(KeyTTL, 0)
	if err != nil {
		return nil, err
	}

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path, err := set.Path(KeyPath)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, set.Fail(KeyPath, "failed to create directory", err)
		}
		syncWrites, err := set.Bool(KeySyncWrites, false)
		if err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(syncWrites)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, set.Fail(KeyPath, "failed to open database", err)
	}

	slog.Info("badger auditlog initialized", "in_memory", inMemory, "path", opts.Dir, "ttl", ttl)
	return NewWithDB(db, ttl), nil
}

// Backend is a BadgerDB implementation of auditlog.Backend.
type Backend struct {
	db     *badger.DB
	ttl    time.Duration
	closed atomic.Bool
}

// NewWithDB creates a backend around an open database. A positive ttl
// expires records after that long.
func NewWithDB(db *badger.DB, ttl time.Duration) *Backend {
	return &Backend{db: db, ttl: ttl}
}

// Put stores a record.
func (b *Backend) Put(_ context.Context, rec *auditlog.Record) error {
	if b.closed.Load() {
		return auditlog.ErrClosed
	}
	if err := auditlog.Validate(rec); err != nil {
		return err
	}

	data, err := auditlog.Encode(rec)
	if err != nil {
		return err
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(recordPrefix+auditlog.SortKey(rec)), data)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger put: %w", err)
	}
	return nil
}

// List walks records newest first until the limit is reached.
func (b *Backend) List(_ context.Context, opts auditlog.QueryOptions) ([]*auditlog.Record, error) {
	if b.closed.Load() {
		return nil, auditlog.ErrClosed
	}

	limit := opts.EffectiveLimit()
	var out []*auditlog.Record
	prefix := []byte(recordPrefix)

	err := b.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.Prefix = prefix
		it := txn.NewIterator(iopts)
		defer it.Close()

		seek := prefix
		if !opts.Before.IsZero() {
			// First key strictly older than Before.
			seek = []byte(recordPrefix + auditlog.SortKey(&auditlog.Record{Timestamp: opts.Before.Add(-time.Nanosecond)}))
		}

		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var rec *auditlog.Record
			err := it.Item().Value(func(val []byte) error {
				var derr error
				rec, derr = auditlog.Decode(val)
				return derr
			})
			if err != nil {
				return err
			}
			if !opts.After.IsZero() && !rec.Timestamp.After(opts.After) {
				break
			}
			if opts.Matches(rec) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger list: %w", err)
	}
	return out, nil
}

// Count returns the number of live records.
func (b *Backend) Count(_ context.Context) (int, error) {
	if b.closed.Load() {
		return 0, auditlog.ErrClosed
	}

	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		iopts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("badger count: %w", err)
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
