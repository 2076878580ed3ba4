// Package redis provides Redis-backed storage for rate limit counters.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"audio-trends-service/internal/ratelimit"
)

// CounterStore implements ratelimit.Store using Redis.
// Counters are stored as JSON and expire in Redis at their ExpiresAt.
type CounterStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	now       func() time.Time
}

var _ ratelimit.Store = (*CounterStore)(nil)

// NewCounterStore creates a new Redis counter store.
// keyPrefix namespaces all keys so several services can share one Redis.
func NewCounterStore(client *redis.Client, logger *zap.Logger, keyPrefix string) *CounterStore {
	return &CounterStore{
		client:    client,
		logger:    logger,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Get retrieves the counter for key. Returns nil if the key doesn't exist or has expired.
func (s *CounterStore) Get(ctx context.Context, key string) (*ratelimit.Counter, error) {
	data, err := s.client.Get(ctx, s.buildKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c ratelimit.Counter
	if err := json.Unmarshal(data, &c); err != nil {
		s.logger.Warn("dropping undecodable rate limit counter",
			zap.String("key", key),
			zap.Error(err),
		)

		return nil, nil
	}

	if s.now().After(c.ExpiresAt) {
		return nil, nil
	}

	return &c, nil
}

// Put stores value until its ExpiresAt. Values that are already expired are deleted.
func (s *CounterStore) Put(ctx context.Context, key string, value ratelimit.Counter) error {
	ttl := value.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.buildKey(key), data, ttl).Err(); err != nil {
		return err
	}

	s.logger.Debug("rate limit counter stored",
		zap.String("key", key),
		zap.Int64("count", value.Count),
		zap.Duration("ttl", ttl),
	)

	return nil
}

// Delete removes a counter. Deleting a missing key is not an error.
func (s *CounterStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.buildKey(key)).Err()
}

// buildKey creates a fully-qualified key by prefixing with the configured keyPrefix.
func (s *CounterStore) buildKey(key string) string {
	return s.keyPrefix + ":" + key
}
