// Package redis provides a Redis-backed audit log backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/storage"
)

const (
	KeyAddr        = "addr"
	KeyPassword    = "password"
	KeyDB          = "db"
	KeyMaxRetries  = "max_retries"
	KeyDialTimeout = "dial_timeout"
	KeyKeyPrefix   = "key_prefix"
	KeyTTL         = "ttl"

	scanBatch = 200
)

func init() {
	auditlog.Register("redis", NewFactory, Defaults)
}

// Defaults returns the default configuration for the Redis backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyAddr:        "localhost:6379",
		KeyPassword:    "",
		KeyDB:          "0",
		KeyMaxRetries:  "3",
		KeyDialTimeout: "5s",
		KeyKeyPrefix:   "arc-skill:",
		KeyTTL:         "0",
	}
}

// NewFactory creates a new Redis backend from a configuration map.
func NewFactory(ctx context.Context, config map[string]string) (auditlog.Backend, error) {
	opts, prefix, ttl, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, storage.NewSettings("redis", config).Fail(KeyAddr, "failed to connect", err)
	}

	slog.Info("redis auditlog initialized", "addr", opts.Addr, "db", opts.DB, "key_prefix", prefix)
	return NewWithClient(client, prefix, ttl), nil
}

func parseConfig(config map[string]string) (*redis.Options, string, time.Duration, error) {
	set := storage.NewSettings("redis", config)
	addr, err := set.Required(KeyAddr)
	if err != nil {
		return nil, "", 0, err
	}
	db, err := set.Int(KeyDB, 0, 0)
	if err != nil {
		return nil, "", 0, err
	}
	maxRetries, err := set.Int(KeyMaxRetries, 3, -1)
	if err != nil {
		return nil, "", 0, err
	}
	dialTimeout, err := set.Duration(KeyDialTimeout, 5*time.Second)
	if err != nil {
		return nil, "", 0, err
	}
	ttl, err := set.Duration(KeyTTL, 0)
	if err != nil {
		return nil, "", 0, err
	}

	opts := &redis.Options{
		Addr:        addr,
		Password:    set.String(KeyPassword, ""),
		DB:          db,
		MaxRetries:  maxRetries,
		DialTimeout: dialTimeout,
	}
	return opts, set.String(KeyKeyPrefix, "arc-skill:"), ttl, nil
}

// Backend is a Redis implementation of auditlog.Backend. Records are JSON
// strings indexed by a sorted set scored with the timestamp in microseconds.
type Backend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	closed atomic.Bool
}

// NewWithClient creates a new backend with an existing Redis client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Backend {
	if prefix == "" {
		prefix = "arc-skill:"
	}
	return &Backend{client: client, prefix: prefix, ttl: ttl}
}

func (b *Backend) indexKey() string           { return b.prefix + "audit:index" }
func (b *Backend) recordKey(id string) string { return b.prefix + "audit:rec:" + id }

func score(t time.Time) float64 { return float64(t.UnixMicro()) }

// Put stores a record and indexes it by time.
func (b *Backend) Put(ctx context.Context, rec *auditlog.Record) error {
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

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.recordKey(rec.ID), data, b.ttl)
	pipe.ZAdd(ctx, b.indexKey(), redis.Z{Score: score(rec.Timestamp), Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// List pages through the time index newest first, skipping records that
// expired or do not match.
func (b *Backend) List(ctx context.Context, opts auditlog.QueryOptions) ([]*auditlog.Record, error) {
	if b.closed.Load() {
		return nil, auditlog.ErrClosed
	}

	rng := &redis.ZRangeBy{Max: "+inf", Min: "-inf", Count: scanBatch}
	if !opts.Before.IsZero() {
		rng.Max = "(" + strconv.FormatInt(opts.Before.UnixMicro(), 10)
	}
	if !opts.After.IsZero() {
		rng.Min = "(" + strconv.FormatInt(opts.After.UnixMicro(), 10)
	}

	limit := opts.EffectiveLimit()
	var out []*auditlog.Record
	for {
		ids, err := b.client.ZRevRangeByScore(ctx, b.indexKey(), rng).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = b.recordKey(id)
		}
		vals, err := b.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list: mget: %w", err)
		}

		var expired []any
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				expired = append(expired, ids[i])
				continue
			}
			rec, err := auditlog.Decode([]byte(s))
			if err != nil {
				return nil, err
			}
			if opts.Matches(rec) {
				out = append(out, rec)
				if len(out) == limit {
					break
				}
			}
		}
		if len(expired) > 0 {
			_ = b.client.ZRem(ctx, b.indexKey(), expired...).Err()
		}
		if len(out) >= limit || len(ids) < scanBatch {
			break
		}
		rng.Offset += int64(len(ids))
	}
	auditlog.SortNewestFirst(out)
	return out, nil
}

// Count returns the number of indexed records. Expired records are counted
// until a List pass prunes them.
func (b *Backend) Count(ctx context.Context) (int, error) {
	if b.closed.Load() {
		return 0, auditlog.ErrClosed
	}
	n, err := b.client.ZCard(ctx, b.indexKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis count: %w", err)
	}
	return int(n), nil
}

// Close closes the client.
func (b *Backend) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.client.Close()
}
