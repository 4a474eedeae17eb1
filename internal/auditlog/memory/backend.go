// Package memory provides an in-process audit log backend that keeps the
// most recent records.
package memory

import (
	"context"
	"sync"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/storage"
)

const (
	KeyCapacity = "capacity"

	defaultCapacity = 10000
)

func init() {
	auditlog.Register("memory", NewFactory, Defaults)
}

// Defaults returns the default configuration for the memory backend.
func Defaults() map[string]string {
	return map[string]string{KeyCapacity: "10000"}
}

// NewFactory creates a memory backend from a configuration map.
func NewFactory(_ context.Context, config map[string]string) (auditlog.Backend, error) {
	capacity, err := storage.NewSettings("memory", config).Int(KeyCapacity, defaultCapacity, 1)
	if err != nil {
		return nil, err
	}
	return New(capacity), nil
}

// Backend is a bounded in-memory audit log. When full, the oldest inserted
// record is evicted.
type Backend struct {
	mu       sync.RWMutex
	records  []*auditlog.Record
	capacity int
	closed   bool
}

// New returns a backend holding at most capacity records.
func New(capacity int) *Backend {
	return &Backend{capacity: capacity}
}

func (b *Backend) Put(_ context.Context, rec *auditlog.Record) error {
	if err := auditlog.Validate(rec); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return auditlog.ErrClosed
	}

	cp := *rec
	if len(b.records) >= b.capacity {
		copy(b.records, b.records[1:])
		b.records = b.records[:len(b.records)-1]
	}
	b.records = append(b.records, &cp)
	return nil
}

func (b *Backend) List(_ context.Context, opts auditlog.QueryOptions) ([]*auditlog.Record, error) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil, auditlog.ErrClosed
	}
	matched := make([]*auditlog.Record, 0)
	for _, r := range b.records {
		if opts.Matches(r) {
			cp := *r
			matched = append(matched, &cp)
		}
	}
	b.mu.RUnlock()

	auditlog.SortNewestFirst(matched)
	if limit := opts.EffectiveLimit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (b *Backend) Count(context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return 0, auditlog.ErrClosed
	}
	return len(b.records), nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.records = nil
	return nil
}
