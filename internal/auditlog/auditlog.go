// Package auditlog records skill invocations to a pluggable backend.
package auditlog

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/bytedance/sonic"

	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

// DefaultLimit bounds List when QueryOptions.Limit is zero.
const DefaultLimit = 50

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = skerrors.ErrNotFound

	// ErrClosed indicates the backend has been closed.
	ErrClosed = skerrors.ErrClosed
)

// Record is one audited invocation.
type Record struct {
	ID          string        `json:"id"`
	RequestID   string        `json:"request_id,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	RequestType string        `json:"request_type"`
	Intent      string        `json:"intent,omitempty"`
	Handler     string        `json:"handler,omitempty"`
	Outcome     string        `json:"outcome"`
	Speech      string        `json:"speech,omitempty"`
	Error       string        `json:"error,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration"`
}

// QueryOptions filters List. Zero values match everything.
type QueryOptions struct {
	Limit       int
	RequestType string
	Intent      string
	// Before and After bound Timestamp exclusively.
	Before time.Time
	After  time.Time
}

// Backend stores records. All implementations must be thread-safe.
type Backend interface {
	Put(ctx context.Context, rec *Record) error
	// List returns matching records, newest first.
	List(ctx context.Context, opts QueryOptions) ([]*Record, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Matches reports whether rec passes the filters of q.
func (q QueryOptions) Matches(rec *Record) bool {
	if q.RequestType != "" && rec.RequestType != q.RequestType {
		return false
	}
	if q.Intent != "" && rec.Intent != q.Intent {
		return false
	}
	if !q.Before.IsZero() && !rec.Timestamp.Before(q.Before) {
		return false
	}
	if !q.After.IsZero() && !rec.Timestamp.After(q.After) {
		return false
	}
	return true
}

// EffectiveLimit returns Limit, or DefaultLimit when unset.
func (q QueryOptions) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Validate checks a record before it is stored.
func Validate(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", skerrors.ErrInvalidInput)
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is empty", skerrors.ErrInvalidInput)
	}
	if rec.Timestamp.IsZero() {
		return fmt.Errorf("%w: record %s has no timestamp", skerrors.ErrInvalidInput, rec.ID)
	}
	return nil
}

// SortNewestFirst orders records by descending timestamp, then id.
func SortNewestFirst(recs []*Record) {
	slices.SortStableFunc(recs, func(a, b *Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}

// Encode serializes a record for key-value backends.
func Encode(rec *Record) ([]byte, error) {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

// Decode parses a record produced by Encode.
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

// SortKey returns a key that sorts lexicographically newest first for
// timestamps after the Unix epoch.
func SortKey(rec *Record) string {
	inv := uint64(math.MaxInt64 - rec.Timestamp.UnixNano())
	return fmt.Sprintf("%019d-%s", inv, rec.ID)
}
