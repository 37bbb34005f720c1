package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkshelf/internal/cache"
)

// DefaultCacheTTL bounds how long a shared query result survives in Redis
const DefaultCacheTTL = 10 * time.Minute

// Store is the shared cache tier for query results. It stores any JSON
// encodable value under linkshelf:cache:<entity>:<user>, tagged with the
// version held under linkshelf:cachever:<entity>:<user>.
type Store[V any] struct {
	client *redis.Client
	ttl    time.Duration
}

// envelope ties a cached value to the version it was loaded under
type envelope[V any] struct {
	Version uint64 `json:"version"`
	Value   V      `json:"value"`
}

// saveScript sets the value only while the version key still holds
// ARGV[1]. A missing version key reads as 0.
var saveScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// NewStore creates a new Redis store
func NewStore[V any](client *redis.Client, ttl time.Duration) *Store[V] {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store[V]{
		client: client,
		ttl:    ttl,
	}
}

// Version implements cache.Remote. A key never invalidated is at 0.
func (s *Store[V]) Version(ctx context.Context, key cache.Key) (uint64, error) {
	v, err := s.client.Get(ctx, VersionKey(key)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get %s cache version: %w", key.Entity, err)
	}
	return v, nil
}

// Load implements cache.Remote. A missing key, or a value saved under
// another version, is a miss, not an error.
func (s *Store[V]) Load(ctx context.Context, key cache.Key, version uint64) (V, bool, error) {
	var zero V
	data, err := s.client.Get(ctx, CacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get cached %s: %w", key.Entity, err)
	}
	return decodeAt[V](data, version)
}

// Save implements cache.Remote. It reports false when the version moved.
func (s *Store[V]) Save(ctx context.Context, key cache.Key, version uint64, value V) (bool, error) {
	data, err := encode(envelope[V]{Version: version, Value: value})
	if err != nil {
		return false, err
	}
	n, err := saveScript.Run(ctx, s.client,
		[]string{VersionKey(key), CacheKey(key)},
		strconv.FormatUint(version, 10), data, s.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to cache %s: %w", key.Entity, err)
	}
	return n == 1, nil
}

// Invalidate implements cache.Remote. The version bump and the delete
// run in one transaction.
func (s *Store[V]) Invalidate(ctx context.Context, key cache.Key) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, VersionKey(key))
		pipe.Del(ctx, CacheKey(key))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cached %s: %w", key.Entity, err)
	}
	return nil
}

// Flush removes every cached query result. Version keys are kept, so
// entries held by running processes stay retired.
func (s *Store[V]) Flush(ctx context.Context) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixCache+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete cache key: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to flush cache: %w", err)
	}
	return removed, nil
}

// Ping checks Redis is reachable
func (s *Store[V]) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func encode[V any](v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return data, nil
}

// decodeAt unwraps an envelope, reporting a miss when it was saved under
// another version.
func decodeAt[V any](data []byte, version uint64) (V, bool, error) {
	var zero V
	env, err := decode[envelope[V]](data)
	if err != nil {
		return zero, false, err
	}
	if env.Version != version {
		return zero, false, nil
	}
	return env.Value, true, nil
}

func decode[V any](data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return v, nil
}
