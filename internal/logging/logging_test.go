package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewWithDefaults(t *testing.T) {
	logger, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWithLevel(t *testing.T) {
	logger, err := New(&Config{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "verbose", Format: "json"})
	assert.Error(t, err)
}

func TestTestLoggerObservation(t *testing.T) {
	tl := NewTestLogger()
	tl.Info("index rebuilt")
	tl.AssertLogged(t, zapcore.InfoLevel, "index rebuilt")
	assert.Len(t, tl.All(), 1)
}
