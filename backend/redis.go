package backend

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the distributed backend: entries live in an external redis
// service, serialized by the store's Codec. Every operation runs under a
// bounded timeout, and every failure (network, timeout, serialization)
// degrades to a cache miss rather than an error, so a flaky cache service
// can never take down the read path.
//
// A per-account set of live keys is maintained alongside the entries so
// RemoveAccount does not need a scan.
type Redis[K Key, V any] struct {
	client  redis.UniversalClient
	codec   Codec[V]
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	logger  *slog.Logger
}

const defaultRedisTimeout = 2 * time.Second

// NewRedis creates a distributed store. The prefix namespaces one cache
// kind within the shared redis keyspace. A zero ttl means entries do not
// expire; a zero timeout selects a 2s default.
func NewRedis[K Key, V any](client redis.UniversalClient, prefix string, codec Codec[V], ttl, timeout time.Duration, logger *slog.Logger) *Redis[K, V] {
	if timeout <= 0 {
		timeout = defaultRedisTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Redis[K, V]{
		client:  client,
		codec:   codec,
		prefix:  prefix,
		ttl:     ttl,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *Redis[K, V]) entryKey(key K) string {
	return r.prefix + ":" + key.StorageKey()
}

func (r *Redis[K, V]) indexKey(accountID string) string {
	return r.prefix + ":idx:" + accountID
}

func (r *Redis[K, V]) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// Get implements Store.
func (r *Redis[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V
	ctx, cancel := r.bound(ctx)
	defer cancel()
	blob, err := r.client.Get(ctx, r.entryKey(key)).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		r.logger.Warn("redis get failed, treating as miss", "key", r.entryKey(key), "error", err)
		return zero, false
	}
	value, err := r.codec.Decode(blob)
	if err != nil {
		r.logger.Warn("redis entry undecodable, treating as miss", "key", r.entryKey(key), "error", err)
		return zero, false
	}
	return value, true
}

// GetAll implements Store using a single MGET round trip.
func (r *Redis[K, V]) GetAll(ctx context.Context, keys []K) map[K]V {
	out := make(map[K]V, len(keys))
	if len(keys) == 0 {
		return out
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	names := make([]string, len(keys))
	for i, key := range keys {
		names[i] = r.entryKey(key)
	}
	values, err := r.client.MGet(ctx, names...).Result()
	if err != nil {
		r.logger.Warn("redis mget failed, treating as miss", "keys", len(keys), "error", err)
		return out
	}
	for i, raw := range values {
		if raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		value, err := r.codec.Decode([]byte(s))
		if err != nil {
			r.logger.Warn("redis entry undecodable, skipping", "key", names[i], "error", err)
			continue
		}
		out[keys[i]] = value
	}
	return out
}

// Put implements Store.
func (r *Redis[K, V]) Put(ctx context.Context, key K, value V) {
	blob, err := r.codec.Encode(value)
	if err != nil {
		r.logger.Warn("redis entry unencodable, not cached", "key", r.entryKey(key), "error", err)
		return
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.entryKey(key), blob, r.ttl)
	pipe.SAdd(ctx, r.indexKey(key.AccountID()), r.entryKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis put failed", "key", r.entryKey(key), "error", err)
	}
}

// Remove implements Store.
func (r *Redis[K, V]) Remove(ctx context.Context, key K) {
	r.RemoveAll(ctx, []K{key})
}

// RemoveAll implements Store using one pipeline.
func (r *Redis[K, V]) RemoveAll(ctx context.Context, keys []K) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := r.bound(ctx)
	defer cancel()
	pipe := r.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, r.entryKey(key))
		pipe.SRem(ctx, r.indexKey(key.AccountID()), r.entryKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis remove failed", "keys", len(keys), "error", err)
	}
}

// RemoveAccount implements Store via the per-account key index.
func (r *Redis[K, V]) RemoveAccount(ctx context.Context, accountID string) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	idx := r.indexKey(accountID)
	names, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		r.logger.Warn("redis account index unreadable", "account", accountID, "error", err)
		return
	}
	pipe := r.client.Pipeline()
	for _, name := range names {
		pipe.Del(ctx, name)
	}
	pipe.Del(ctx, idx)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis account purge failed", "account", accountID, "error", err)
	}
}
