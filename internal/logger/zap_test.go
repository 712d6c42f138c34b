package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "info", Format: "json", Output: path}, SentryConfig{})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("profile fetched", zap.String("source", "mock"), zap.Duration("duration", 1500*time.Millisecond))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), `"message":"profile fetched"`)
	assert.Contains(t, string(data), `"source":"mock"`)
	assert.Contains(t, string(data), `"duration":1500`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log, err := New(Config{Level: "loud", Output: filepath.Join(t.TempDir(), "app.log")}, SentryConfig{})
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_SentryWithoutDSNIsDisabled(t *testing.T) {
	log, err := New(Config{Output: "stderr"}, SentryConfig{Enabled: true})
	require.NoError(t, err)

	assert.False(t, log.sentryEnabled)
	assert.False(t, log.With(zap.String("k", "v")).sentryEnabled)
}

func TestSentryCore_OnlyErrors(t *testing.T) {
	core := newSentryCore(zapcore.ErrorLevel)

	assert.Nil(t, core.Check(zapcore.Entry{Level: zapcore.WarnLevel}, nil))
	assert.NotNil(t, core.Check(zapcore.Entry{Level: zapcore.ErrorLevel}, nil))
}

func TestBuildEvent(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.ErrorLevel, Message: "source failed", Time: time.Now()}
	fields := []zapcore.Field{
		zap.String("source", "paid_primary"),
		zap.String("handle", "nasa"),
		zap.Int("status", 502),
		zap.Float64("ratio", 0.5),
		zap.Bool("cached", false),
		zap.Error(errors.New("boom")),
	}

	event := buildEvent(entry, fields)

	assert.Equal(t, sentry.LevelError, event.Level)
	assert.Equal(t, "source failed", event.Message)
	assert.Equal(t, "paid_primary", event.Tags["source"])
	assert.Equal(t, "nasa", event.Tags["handle"])
	assert.Equal(t, int64(502), event.Extra["status"])
	assert.Equal(t, 0.5, event.Extra["ratio"])
	assert.Equal(t, false, event.Extra["cached"])
	assert.Equal(t, "boom", event.Extra["error"])
}

func TestZapLevelToSentry(t *testing.T) {
	assert.Equal(t, sentry.LevelWarning, zapLevelToSentry(zapcore.WarnLevel))
	assert.Equal(t, sentry.LevelFatal, zapLevelToSentry(zapcore.PanicLevel))
	assert.Equal(t, sentry.LevelDebug, zapLevelToSentry(zapcore.DebugLevel))
}
