// Package auditlogtest provides a shared conformance suite for audit log
// backends.
package auditlogtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gezibash/arc-skill/internal/auditlog"
	skerrors "github.com/gezibash/arc-skill/pkg/errors"
)

// Base is the timestamp of the first record produced by Records.
var Base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Records returns n records one second apart, alternating request types.
func Records(n int) []*auditlog.Record {
	out := make([]*auditlog.Record, n)
	for i := range out {
		rec := &auditlog.Record{
			ID:          fmt.Sprintf("rec-%03d", i),
			RequestID:   fmt.Sprintf("req-%03d", i),
			SessionID:   "session-1",
			RequestType: "IntentRequest",
			Intent:      "CaptureSumOperationIntent",
			Handler:     "Sum",
			Outcome:     "handled",
			Speech:      "The sum of 1 and 2 is 3.",
			Timestamp:   Base.Add(time.Duration(i) * time.Second),
			Duration:    time.Duration(i+1) * time.Millisecond,
		}
		if i%2 == 1 {
			rec.RequestType = "LaunchRequest"
			rec.Intent = ""
			rec.Handler = "Launch"
		}
		out[i] = rec
	}
	return out
}

// Run exercises newBackend against the Backend contract. newBackend must
// return an empty backend; Run closes it.
func Run(t *testing.T, newBackend func(t *testing.T) auditlog.Backend) {
	t.Run("PutList", func(t *testing.T) {
		be := newBackend(t)
		defer be.Close()
		ctx := context.Background()

		recs := Records(5)
		for _, r := range recs {
			if err := be.Put(ctx, r); err != nil {
				t.Fatalf("Put(%s): %v", r.ID, err)
			}
		}

		got, err := be.List(ctx, auditlog.QueryOptions{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("List returned %d records, want 5", len(got))
		}
		for i, r := range got {
			want := recs[4-i]
			if r.ID != want.ID {
				t.Errorf("got[%d] = %s, want %s (newest first)", i, r.ID, want.ID)
			}
			if !r.Timestamp.Equal(want.Timestamp) || r.Duration != want.Duration || r.Speech != want.Speech {
				t.Errorf("got[%d] = %+v, want %+v", i, r, want)
			}
		}

		n, err := be.Count(ctx)
		if err != nil || n != 5 {
			t.Errorf("Count = %d, %v; want 5", n, err)
		}
	})

	t.Run("Filters", func(t *testing.T) {
		be := newBackend(t)
		defer be.Close()
		ctx := context.Background()

		for _, r := range Records(10) {
			if err := be.Put(ctx, r); err != nil {
				t.Fatal(err)
			}
		}

		tests := []struct {
			name string
			opts auditlog.QueryOptions
			want []string
		}{
			{"limit", auditlog.QueryOptions{Limit: 3}, []string{"rec-009", "rec-008", "rec-007"}},
			{"request type", auditlog.QueryOptions{RequestType: "LaunchRequest", Limit: 2}, []string{"rec-009", "rec-007"}},
			{"intent", auditlog.QueryOptions{Intent: "CaptureSumOperationIntent", Limit: 2}, []string{"rec-008", "rec-006"}},
			{"before", auditlog.QueryOptions{Before: Base.Add(2 * time.Second)}, []string{"rec-001", "rec-000"}},
			{"after", auditlog.QueryOptions{After: Base.Add(7 * time.Second)}, []string{"rec-009", "rec-008"}},
			{"window", auditlog.QueryOptions{After: Base.Add(2 * time.Second), Before: Base.Add(5 * time.Second)}, []string{"rec-004", "rec-003"}},
			{"none", auditlog.QueryOptions{Intent: "Nope"}, nil},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := be.List(ctx, tt.opts)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("got %d records, want %v", len(got), tt.want)
				}
				for i, r := range got {
					if r.ID != tt.want[i] {
						t.Errorf("got[%d] = %s, want %s", i, r.ID, tt.want[i])
					}
				}
			})
		}
	})

	t.Run("InvalidRecord", func(t *testing.T) {
		be := newBackend(t)
		defer be.Close()

		if err := be.Put(context.Background(), &auditlog.Record{}); !errors.Is(err, skerrors.ErrInvalidInput) {
			t.Errorf("Put(empty) = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		be := newBackend(t)
		if err := be.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if err := be.Put(context.Background(), Records(1)[0]); !errors.Is(err, auditlog.ErrClosed) {
			t.Errorf("Put after close = %v, want ErrClosed", err)
		}
		if _, err := be.List(context.Background(), auditlog.QueryOptions{}); !errors.Is(err, auditlog.ErrClosed) {
			t.Errorf("List after close = %v, want ErrClosed", err)
		}
	})
}
