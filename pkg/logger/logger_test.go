package logger

import (
	"ai_course_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "课程...", Truncate("课程内容生成", 2))
}

func TestInitLoggerLevel(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	InitLogger(&config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "warn"}})
	assert.False(t, Log.Core().Enabled(zap.InfoLevel))
	assert.True(t, Log.Core().Enabled(zap.WarnLevel))

	InitLogger(&config.Config{Server: config.ServerConfig{Mode: "debug"}})
	assert.True(t, Log.Core().Enabled(zap.DebugLevel))
}
