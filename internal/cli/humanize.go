package cli

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Ago formats t relative to now ("3 minutes ago"). Zero renders as "-".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// Latency formats d in milliseconds with at most two decimals.
func Latency(d time.Duration) string {
	return humanize.FtoaWithDigits(float64(d)/float64(time.Millisecond), 2) + "ms"
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Bytes formats a payload size ("1.2 kB").
func Bytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
