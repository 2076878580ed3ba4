package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"audio-trends-service/internal/app/service"
	"audio-trends-service/pkg/locker"
)

type stubRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *stubRefresher) Refresh(ctx context.Context) (service.RefreshResult, error) {
	r.calls.Add(1)
	if r.err != nil {
		return service.RefreshResult{}, r.err
	}
	return service.RefreshResult{Count: 3}, nil
}

func newTestLocker(t *testing.T) (*locker.RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return locker.NewRedisLocker(client, zap.NewNop(), "audiotrends"), mr
}

func testConfig() RefreshConfig {
	return RefreshConfig{Interval: time.Hour, Timeout: time.Second}
}

func TestExecuteRefresh_SuccessHoldsLock(t *testing.T) {
	l, _ := newTestLocker(t)
	refresher := &stubRefresher{}
	ctx := context.Background()

	first := NewRefreshScheduler(refresher, testConfig(), zap.NewNop(), l)
	second := NewRefreshScheduler(refresher, testConfig(), zap.NewNop(), l)

	assert.True(t, first.executeRefresh(ctx))
	assert.False(t, second.executeRefresh(ctx), "lock is held for the cooldown")
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestExecuteRefresh_FailureReleasesLock(t *testing.T) {
	l, _ := newTestLocker(t)
	refresher := &stubRefresher{err: errors.New("upstream down")}
	ctx := context.Background()

	s := NewRefreshScheduler(refresher, testConfig(), zap.NewNop(), l)

	assert.True(t, s.executeRefresh(ctx))
	assert.True(t, s.executeRefresh(ctx), "failed run must not block the next attempt")
	assert.Equal(t, int32(2), refresher.calls.Load())
}

func TestExecuteRefresh_CooldownExpires(t *testing.T) {
	l, mr := newTestLocker(t)
	refresher := &stubRefresher{}
	ctx := context.Background()

	s := NewRefreshScheduler(refresher, testConfig(), zap.NewNop(), l)

	require.True(t, s.executeRefresh(ctx))
	mr.FastForward(time.Hour + time.Second)
	assert.True(t, s.executeRefresh(ctx))
	assert.Equal(t, int32(2), refresher.calls.Load())
}

func TestStartStop_RunsOnStartup(t *testing.T) {
	l, _ := newTestLocker(t)
	refresher := &stubRefresher{}

	s := NewRefreshScheduler(refresher, testConfig(), zap.NewNop(), l)
	s.Start(true)

	require.Eventually(t, func() bool {
		return refresher.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	assert.Equal(t, int32(1), refresher.calls.Load())
}
