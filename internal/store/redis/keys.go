package redis

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/linkshelf/internal/cache"
)

const (
	// KeyPrefixCache is the prefix for cached query results
	KeyPrefixCache = "linkshelf:cache:"
	// KeyPrefixVersion is the prefix for the shared version of each cache key.
	// It must not match KeyPrefixCache+"*".
	KeyPrefixVersion = "linkshelf:cachever:"
)

// CacheKey returns the Redis key for a cached query result
func CacheKey(key cache.Key) string {
	return KeyPrefixCache + key.Entity + ":" + key.UserID
}

// VersionKey returns the Redis key holding the shared version of key
func VersionKey(key cache.Key) string {
	return KeyPrefixVersion + key.Entity + ":" + key.UserID
}

// ParseCacheKey recovers the cache key from a Redis key
func ParseCacheKey(redisKey string) (cache.Key, error) {
	rest, ok := strings.CutPrefix(redisKey, KeyPrefixCache)
	if !ok {
		return cache.Key{}, fmt.Errorf("invalid cache key: %s", redisKey)
	}
	entity, userID, ok := strings.Cut(rest, ":")
	if !ok || entity == "" || userID == "" {
		return cache.Key{}, fmt.Errorf("invalid cache key: %s", redisKey)
	}
	return cache.Key{Entity: entity, UserID: userID}, nil
}
