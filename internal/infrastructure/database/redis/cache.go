package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/Serial-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/Serial-Intelligence/pkg/errors"
)

var (
	ErrCacheMiss           = errors.New(errors.ErrCodeNotFound, "cache miss")
	ErrSerializationFailed = errors.New(errors.ErrCodeSerialization, "serialization failed")
)

// nullMarker is stored when a loader finds nothing, so repeated lookups of
// an absent key do not reach the loader until the marker expires.
const nullMarker = "__null__"

const scanBatch = 100

// Cache stores JSON documents under a key prefix. Pattern snapshots and
// staged export rows both go through it.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// GetOrSet reads key into dest. On a miss, loader runs once per key no
	// matter how many callers are waiting, and its value is stored and
	// decoded into dest.
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
	Ping(ctx context.Context) error
}

type jsonCache struct {
	client       *Client
	logger       logging.Logger
	prefix       string
	ttl          time.Duration
	tombstoneTTL time.Duration
	jitter       float64
	flight       singleflight.Group
}

// CacheOption configures NewRedisCache.
type CacheOption func(*jsonCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *jsonCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *jsonCache) { c.ttl = ttl }
}

// WithNullCacheTTL sets how long a "loader found nothing" marker lives.
func WithNullCacheTTL(ttl time.Duration) CacheOption {
	return func(c *jsonCache) { c.tombstoneTTL = ttl }
}

// WithJitter randomizes each expiry by up to ±fraction of its TTL.
func WithJitter(fraction float64) CacheOption {
	return func(c *jsonCache) { c.jitter = fraction }
}

// NewRedisCache returns a Cache on client. Keys are namespaced by the
// client's KeyPrefix unless WithPrefix says otherwise.
func NewRedisCache(client *Client, log logging.Logger, opts ...CacheOption) Cache {
	c := &jsonCache{
		client:       client,
		logger:       log,
		prefix:       client.KeyPrefix(),
		ttl:          5 * time.Minute,
		tombstoneTTL: 30 * time.Second,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *jsonCache) key(k string) string { return c.prefix + k }

func (c *jsonCache) keys(ks []string) []string {
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		out = append(out, c.key(k))
	}
	return out
}

// expiry resolves the TTL used for a write: zero means the cache default,
// and the result is spread by the configured jitter.
func (c *jsonCache) expiry(ttl time.Duration) time.Duration {
	if ttl <= 0 || c.jitter == 0 {
		return ttl
	}
	spread := (rand.Float64()*2 - 1) * c.jitter
	return ttl + time.Duration(float64(ttl)*spread)
}

func (c *jsonCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	switch {
	case stderrors.Is(err, redis.Nil):
		return ErrCacheMiss
	case err != nil:
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to get from cache")
	case string(raw) == nullMarker:
		return ErrCacheMiss
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return nil
}

func (c *jsonCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.expiry(ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set cache")
	}
	return nil
}

func (c *jsonCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, c.keys(keys)...).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
	}
	return nil
}

func (c *jsonCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to check cache key")
	}
	return n > 0, nil
}

func (c *jsonCache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if err != ErrCacheMiss {
		c.logger.Warn("Cache read failed, loading from source", logging.String("key", key), logging.Err(err))
	}

	v, err, _ := c.flight.Do(key, func() (interface{}, error) {
		return c.fill(ctx, key, ttl, loader)
	})
	if err != nil {
		return err
	}
	if v == nil {
		return ErrCacheMiss
	}
	// Callers sharing a flight each get their own decoded copy.
	raw, err := json.Marshal(v)
	if err != nil {
		return ErrSerializationFailed.WithCause(err)
	}
	return json.Unmarshal(raw, dest)
}

// fill runs loader and writes its result back. Write failures are logged
// and do not fail the read.
func (c *jsonCache) fill(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if err := c.client.Set(ctx, c.key(key), nullMarker, c.tombstoneTTL).Err(); err != nil {
			c.logger.Warn("Failed to cache null marker", logging.String("key", key), logging.Err(err))
		}
		return nil, nil
	}
	if err := c.Set(ctx, key, v, ttl); err != nil {
		c.logger.Warn("Failed to set cache in GetOrSet", logging.String("key", key), logging.Err(err))
	}
	return v, nil
}

// DeleteByPrefix removes every key under prefix with SCAN, never KEYS. The
// scan completes before anything is deleted; deleting mid-scan lets the
// cursor skip keys.
func (c *jsonCache) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	seen := make(map[string]struct{})
	var keys []string
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	if err := iter.Err(); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan cache keys")
	}

	var removed int64
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		n, err := c.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeCacheError, "failed to delete cache keys")
		}
		removed += n
	}
	return removed, nil
}

func (c *jsonCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

//Personal.AI order the ending
