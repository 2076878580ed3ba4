package provider

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audio-trends-service/internal/domain"
)

func failN(t *testing.T, b *Breaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		done, err := b.Allow()
		require.NoError(t, err)
		done(false)
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker("test_open", BreakerConfig{FailureThreshold: 5, Timeout: time.Minute}, zap.NewNop())

	failN(t, b, 4)
	assert.False(t, b.State().IsOpen)
	assert.Equal(t, 4, b.State().FailureCount)

	failN(t, b, 1)

	state := b.State()
	assert.True(t, state.IsOpen)
	assert.Equal(t, "open", state.State)
	assert.Equal(t, 5, state.FailureCount)
	assert.False(t, state.LastFailureTime.IsZero())
	assert.True(t, state.NextAttemptTime.After(time.Now()))
	assert.Greater(t, state.TimeUntilReset, 55*time.Second)

	_, err := b.Allow()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))

	var unavailable *domain.UpstreamUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "test_open", unavailable.Dependency)
	assert.Greater(t, unavailable.RetryIn, time.Duration(0))
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker("test_reset", BreakerConfig{FailureThreshold: 5, Timeout: time.Minute}, zap.NewNop())

	failN(t, b, 4)

	done, err := b.Allow()
	require.NoError(t, err)
	done(true)

	assert.Equal(t, 0, b.State().FailureCount)

	// Another four failures must not trip it because the streak was broken.
	failN(t, b, 4)
	assert.False(t, b.State().IsOpen)
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	t.Run("probe success closes the breaker", func(t *testing.T) {
		b := NewBreaker("test_probe_ok", BreakerConfig{FailureThreshold: 2, Timeout: 50 * time.Millisecond}, zap.NewNop())
		failN(t, b, 2)
		require.True(t, b.State().IsOpen)

		time.Sleep(80 * time.Millisecond)

		done, err := b.Allow()
		require.NoError(t, err)
		done(true)

		state := b.State()
		assert.False(t, state.IsOpen)
		assert.Equal(t, "closed", state.State)
		assert.Equal(t, 0, state.FailureCount)
	})

	t.Run("probe failure reopens the breaker", func(t *testing.T) {
		b := NewBreaker("test_probe_fail", BreakerConfig{FailureThreshold: 2, Timeout: 50 * time.Millisecond}, zap.NewNop())
		failN(t, b, 2)

		time.Sleep(80 * time.Millisecond)

		done, err := b.Allow()
		require.NoError(t, err)
		done(false)

		assert.True(t, b.State().IsOpen)

		_, err = b.Allow()
		assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
	})
}

func TestBreaker_HalfOpenAdmitsEveryCaller(t *testing.T) {
	b := NewBreaker("test_half_open", BreakerConfig{FailureThreshold: 2, Timeout: 50 * time.Millisecond, MaxRequests: 1}, zap.NewNop())
	failN(t, b, 2)

	time.Sleep(80 * time.Millisecond)

	probe, err := b.Allow()
	require.NoError(t, err)

	extra, err := b.Allow()
	require.NoError(t, err, "a second caller during half-open is let through")
	extra(false)
	assert.Equal(t, "half-open", b.State().State, "untracked outcomes do not move the breaker")

	probe(true)
	assert.Equal(t, "closed", b.State().State)
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("test_defaults", BreakerConfig{}, zap.NewNop())

	assert.Equal(t, "test_defaults", b.Name())
	assert.Equal(t, 60*time.Second, b.timeout)

	failN(t, b, 5)
	assert.True(t, b.State().IsOpen)
}
