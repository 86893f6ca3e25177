package respcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore memoizes outcomes in Redis. Keys are scoped by a run
// identifier so a run never observes entries memoized by another run, and
// a TTL bounds leftover state from runs that died before finishing.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// DefaultRedisTTL bounds how long abandoned run entries survive.
const DefaultRedisTTL = 2 * time.Hour

// NewRedisStore creates a Redis-backed store scoped to runID.
// A non-positive ttl falls back to DefaultRedisTTL.
func NewRedisStore(client *redis.Client, runID string, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisStore{
		redis:  client,
		prefix: fmt.Sprintf("involves:resp:%s:", runID),
		ttl:    ttl,
	}
}

// Get returns the memoized entry for the URL, or ErrMiss.
func (s *RedisStore) Get(ctx context.Context, url string) (*Entry, error) {
	data, err := s.redis.Get(ctx, s.prefix+url).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.WithLabelValues("redis").Inc()
			return nil, ErrMiss
		}
		CacheErrors.WithLabelValues("redis", "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("redis", "get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return &entry, nil
}

// Set memoizes an entry for the URL.
func (s *RedisStore) Set(ctx context.Context, url string, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("redis", "set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if err := s.redis.Set(ctx, s.prefix+url, data, s.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("redis", "set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}
