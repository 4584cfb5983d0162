package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("ParsesLevel", func(t *testing.T) {
		log := New(Config{Level: "warn", Format: "console"})
		assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	})

	t.Run("UnknownLevelFallsBackToInfo", func(t *testing.T) {
		log := New(Config{Level: "loud"})
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	})
}
