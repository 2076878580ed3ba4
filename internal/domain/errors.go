package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUpstreamUnavailable is returned when a dependency's circuit breaker is open.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamRequestFailed is returned when every attempt against the upstream failed.
	ErrUpstreamRequestFailed = errors.New("upstream request failed")

	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// UpstreamUnavailableError reports a fail-fast rejection by an open breaker.
type UpstreamUnavailableError struct {
	Dependency string
	RetryIn    time.Duration
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s circuit breaker is open, next attempt in %s", e.Dependency, e.RetryIn.Round(time.Millisecond))
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// UpstreamRequestFailedError wraps the last error seen after all attempts were exhausted.
type UpstreamRequestFailedError struct {
	Attempts int
	Err      error
}

func (e *UpstreamRequestFailedError) Error() string {
	return fmt.Sprintf("upstream request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *UpstreamRequestFailedError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrUpstreamRequestFailed while Unwrap exposes the cause.
func (e *UpstreamRequestFailedError) Is(target error) bool {
	return target == ErrUpstreamRequestFailed
}

// IsUpstreamError reports whether err means trend data is temporarily unavailable.
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamRequestFailed)
}
