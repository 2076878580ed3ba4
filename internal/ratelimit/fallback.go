package ratelimit

import (
	"context"

	"go.uber.org/zap"

	"audio-trends-service/internal/metrics"
)

// FallbackStore serves from a primary store and switches to a secondary one
// for any operation the primary fails, logging the degradation.
type FallbackStore struct {
	primary   Store
	secondary Store
	logger    *zap.Logger
}

// NewFallbackStore creates a store that degrades from primary to secondary.
func NewFallbackStore(primary, secondary Store, logger *zap.Logger) *FallbackStore {
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

// Get reads from the primary store, or the secondary one when it fails.
func (s *FallbackStore) Get(ctx context.Context, key string) (*Counter, error) {
	c, err := s.primary.Get(ctx, key)
	if err == nil {
		return c, nil
	}
	s.degraded("get", key, err)

	return s.secondary.Get(ctx, key)
}

// Put writes to the primary store, or the secondary one when it fails.
func (s *FallbackStore) Put(ctx context.Context, key string, value Counter) error {
	err := s.primary.Put(ctx, key, value)
	if err == nil {
		return nil
	}
	s.degraded("put", key, err)

	return s.secondary.Put(ctx, key, value)
}

// Delete removes key from both stores.
func (s *FallbackStore) Delete(ctx context.Context, key string) error {
	if err := s.primary.Delete(ctx, key); err != nil {
		s.degraded("delete", key, err)
	}

	return s.secondary.Delete(ctx, key)
}

func (s *FallbackStore) degraded(op, key string, err error) {
	metrics.RateLimitStoreFallbacksTotal.WithLabelValues(op).Inc()
	s.logger.Warn("rate limit store unavailable, using in-memory fallback",
		zap.String("operation", op),
		zap.String("key", key),
		zap.Error(err),
	)
}
