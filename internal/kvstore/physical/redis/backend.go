// Package redis provides a Redis-backed key-value storage backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blumotif/folio/internal/kvstore/physical"
	"github.com/blumotif/folio/internal/storage"
)

const (
	KeyAddr     = "addr"
	KeyPassword = "password"
	KeyDB       = "db"
	KeyPrefix   = "prefix"
)

func init() {
	physical.Register("redis", NewFactory, Defaults)
}

// Defaults returns the default configuration for the Redis backend.
func Defaults() map[string]string {
	return map[string]string{
		KeyAddr:   "localhost:6379",
		KeyDB:     "0",
		KeyPrefix: "folio:",
	}
}

// NewFactory creates a new Redis backend from a configuration map.
func NewFactory(ctx context.Context, config map[string]string) (physical.Backend, error) {
	addr := storage.GetString(config, KeyAddr, "localhost:6379")
	password := storage.GetString(config, KeyPassword, "")
	prefix := storage.GetString(config, KeyPrefix, "folio:")

	db, err := storage.GetInt(config, KeyDB, 0)
	if err != nil {
		return nil, storage.NewConfigErrorWithValue("redis", KeyDB, config[KeyDB], "must be an integer")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, storage.NewConfigErrorWithCause("redis", KeyAddr, "failed to connect", err)
	}

	slog.Info("redis kvstore initialized", "addr", addr, "db", db)
	return &Backend{client: client, prefix: prefix}, nil
}

// Backend is a Redis implementation of physical.Backend.
// Each record is a hash with "value" and "updated_at" fields keyed by
// prefix + path.
type Backend struct {
	client *redis.Client
	prefix string
	closed atomic.Bool
}

func (b *Backend) key(path string) string {
	return b.prefix + path
}

func (b *Backend) Get(ctx context.Context, path string) (*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	fields, err := b.client.HGetAll(ctx, b.key(path)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", path, err)
	}
	if len(fields) == 0 {
		return nil, physical.ErrNotFound
	}
	return recordFromFields(path, fields)
}

func (b *Backend) Put(ctx context.Context, path string, value []byte) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	err := b.client.HSet(ctx, b.key(path),
		"value", value,
		"updated_at", time.Now().UTC().UnixNano(),
	).Err()
	if err != nil {
		return fmt.Errorf("redis put %q: %w", path, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, path string) error {
	if b.closed.Load() {
		return physical.ErrClosed
	}

	keys, err := b.scan(ctx, b.key(path+"/")+"*")
	if err != nil {
		return fmt.Errorf("redis delete %q: %w", path, err)
	}
	keys = append(keys, b.key(path))

	if err := b.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", path, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, path string) ([]*physical.Record, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	pattern := b.prefix + "*"
	if path != "" {
		pattern = b.key(path+"/") + "*"
	}
	keys, err := b.scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("redis list %q: %w", path, err)
	}

	var out []*physical.Record
	for _, k := range keys {
		recPath := k[len(b.prefix):]
		seg := physical.ChildSegment(path, recPath)
		if seg == "" || recPath != physical.JoinPath(path, seg) {
			continue
		}
		fields, err := b.client.HGetAll(ctx, k).Result()
		if err != nil {
			return nil, fmt.Errorf("redis list %q: %w", path, err)
		}
		if len(fields) == 0 {
			continue
		}
		rec, err := recordFromFields(recPath, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *Backend) Stats(ctx context.Context) (*physical.Stats, error) {
	if b.closed.Load() {
		return nil, physical.ErrClosed
	}

	keys, err := b.scan(ctx, b.prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("redis stats: %w", err)
	}

	stats := &physical.Stats{Records: int64(len(keys)), BackendType: "redis"}
	for _, k := range keys {
		n, err := b.client.HStrLen(ctx, k, "value").Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redis stats: %w", err)
		}
		stats.SizeBytes += n
	}
	return stats, nil
}

func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	return b.client.Close()
}

func (b *Backend) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := b.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

func recordFromFields(path string, fields map[string]string) (*physical.Record, error) {
	updatedAt, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redis record %q: bad updated_at: %w", path, err)
	}
	return &physical.Record{
		Path:      path,
		Value:     []byte(fields["value"]),
		UpdatedAt: time.Unix(0, updatedAt).UTC(),
	}, nil
}
