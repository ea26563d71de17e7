package logger

import (
	"testing"

	"course_hub_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestLevelFor(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	assert.Equal(t, zapcore.DebugLevel, levelFor(cfg))

	cfg.Server.Mode = "release"
	assert.Equal(t, zapcore.InfoLevel, levelFor(cfg))

	cfg.Log.Level = "warn"
	assert.Equal(t, zapcore.WarnLevel, levelFor(cfg))

	cfg.Log.Level = "not-a-level"
	assert.Equal(t, zapcore.InfoLevel, levelFor(cfg))
}

func TestLogIsUsableBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Log.Info("no-op before init")
	})
}
