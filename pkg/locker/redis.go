package locker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker implements DistributedLocker with Redsync (Redlock over a single pool).
type RedisLocker struct {
	rs        *redsync.Redsync
	logger    *zap.Logger
	keyPrefix string

	mu      sync.Mutex
	mutexes map[string]*redsync.Mutex
}

// NewRedisLocker creates a locker whose keys are namespaced under keyPrefix.
func NewRedisLocker(client *redis.Client, logger *zap.Logger, keyPrefix string) *RedisLocker {
	return &RedisLocker{
		rs:        redsync.New(goredis.NewPool(client)),
		logger:    logger,
		keyPrefix: keyPrefix,
		mutexes:   make(map[string]*redsync.Mutex),
	}
}

// Acquire makes a single, non-blocking attempt to take the lock.
func (r *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	name := r.lockName(key)
	mutex := r.rs.NewMutex(name,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			r.logger.Debug("lock held by another instance", zap.String("key", name))
			return false, nil
		}

		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	r.mu.Lock()
	r.mutexes[key] = mutex
	r.mu.Unlock()

	r.logger.Debug("lock acquired",
		zap.String("key", name),
		zap.Duration("ttl", ttl),
	)

	return true, nil
}

// Release releases the lock if this instance owns it.
func (r *RedisLocker) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	mutex, ok := r.mutexes[key]
	delete(r.mutexes, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	released, err := mutex.UnlockContext(ctx)
	if err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrLockAlreadyExpired) {
			r.logger.Debug("lock expired before release", zap.String("key", mutex.Name()))
			return nil
		}
		return fmt.Errorf("release lock %s: %w", mutex.Name(), err)
	}

	r.logger.Debug("lock released",
		zap.String("key", mutex.Name()),
		zap.Bool("owned", released),
	)

	return nil
}

func (r *RedisLocker) lockName(key string) string {
	if r.keyPrefix == "" {
		return key
	}

	return r.keyPrefix + ":lock:" + key
}
