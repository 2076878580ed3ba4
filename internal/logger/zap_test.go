package logger

import (
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WithoutSentry(t *testing.T) {
	l, err := New(Config{Level: "debug", Format: "json", Output: "stderr", Service: "test"}, SentryConfig{})
	require.NoError(t, err)
	assert.False(t, l.sentryEnabled)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud"}, SentryConfig{})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_SentryRequiresDSN(t *testing.T) {
	l, err := New(Config{}, SentryConfig{Enabled: true})
	require.NoError(t, err)
	assert.False(t, l.sentryEnabled)
}

func TestBuildEvent(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	entry := zapcore.Entry{Level: zapcore.ErrorLevel, Message: "fetch failed", LoggerName: "proxygrid", Time: at}

	event := buildEvent(entry, []zapcore.Field{
		zap.String("dependency", "proxy_grid"),
		zap.Int("attempt", 3),
		zap.Float64("ratio", 0.5),
		zap.Bool("forced", true),
		zap.Error(errors.New("boom")),
	})

	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "fetch failed", event.Message)
	assert.Equal(t, "proxygrid", event.Logger)
	assert.Equal(t, "proxy_grid", event.Tags["dependency"])
	assert.Equal(t, int64(3), event.Extra["attempt"])
	assert.Equal(t, 0.5, event.Extra["ratio"])
	assert.Equal(t, true, event.Extra["forced"])
	assert.Equal(t, "boom", event.Extra["error"])
}

func TestZapLevelToSentry(t *testing.T) {
	tests := []struct {
		level zapcore.Level
		want  sentry.Level
	}{
		{zapcore.DebugLevel, sentry.LevelDebug},
		{zapcore.InfoLevel, sentry.LevelInfo},
		{zapcore.WarnLevel, sentry.LevelWarning},
		{zapcore.ErrorLevel, sentry.LevelError},
		{zapcore.FatalLevel, sentry.LevelFatal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, zapLevelToSentry(tt.level), tt.level.String())
	}
}
