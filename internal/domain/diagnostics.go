package domain

import "time"

// BreakerState is a point-in-time view of one dependency's circuit breaker.
type BreakerState struct {
	Name            string        `json:"name"`
	State           string        `json:"state"`
	IsOpen          bool          `json:"is_open"`
	FailureCount    int           `json:"failure_count"`
	LastFailureTime time.Time     `json:"last_failure_time"`
	NextAttemptTime time.Time     `json:"next_attempt_time"`
	TimeUntilReset  time.Duration `json:"time_until_reset"`
}

// CacheEntryStats describes one cached response.
type CacheEntryStats struct {
	Key       string    `json:"key"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
	IsExpired bool      `json:"is_expired"`
}

// CacheStats summarizes the response cache.
type CacheStats struct {
	Size    int               `json:"size"`
	Keys    []string          `json:"keys"`
	Entries []CacheEntryStats `json:"entries"`
}
