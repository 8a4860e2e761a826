package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionSummaryTTL bounds staleness of cached session summaries; every
// session write also invalidates the key explicitly.
const SessionSummaryTTL = 30 * time.Second

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// SessionSummaryKey is the cache key for the active-session summary of
// one (user, test) pair.
func SessionSummaryKey(userID, testID string) string {
	return fmt.Sprintf("session:summary:%s:%s", userID, testID)
}

// UserSessionSummaryPattern matches every session summary cached for one
// user, across all tests.
func UserSessionSummaryPattern(userID string) string {
	return fmt.Sprintf("session:summary:%s:*", userID)
}

type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

type redisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) CacheService {
	return &redisCache{
		client: client,
		logger: logger,
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return r.client.Set(ctx, key, payload, ttl).Err()
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(payload, dest)
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("Failed to delete cache key", "key", iter.Val(), "error", err)
		}
	}
	return iter.Err()
}

// NoopCache satisfies CacheService without a backing store, for tests
// and for running without Redis. Get always misses.
type NoopCache struct{}

func NewNoopCache() CacheService { return NoopCache{} }

func (NoopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}
func (NoopCache) Get(ctx context.Context, key string, dest interface{}) error { return ErrCacheMiss }
func (NoopCache) Delete(ctx context.Context, key string) error                { return nil }
func (NoopCache) DeletePattern(ctx context.Context, pattern string) error     { return nil }
