// Package locker provides distributed locks so only one service instance runs a job at a time.
package locker

import (
	"context"
	"time"
)

// DistributedLocker acquires named locks shared by all instances.
// Implementations must be safe for concurrent use.
//
//	acquired, err := l.Acquire(ctx, "refresh", 5*time.Minute)
//	if err != nil || !acquired {
//	    return
//	}
//	defer l.Release(ctx, "refresh")
type DistributedLocker interface {
	// Acquire tries once to take the lock. It returns false, nil when another
	// instance holds it. The lock expires after ttl unless released.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives the lock back. Releasing a lock this instance does not hold is a no-op.
	Release(ctx context.Context, key string) error
}
