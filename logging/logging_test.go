package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerConfig(t *testing.T) {
	cfg, err := NewLoggerConfig(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)

	cfg, err = NewLoggerConfig(Config{Level: "debug", Encoding: "json"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())
	assert.Equal(t, "json", cfg.Encoding)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Level: "loud", Encoding: "console"}.Validate())
	assert.Error(t, Config{Level: "info", Encoding: "xml"}.Validate())
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("detect", Config{Level: "warn", Encoding: "console"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	_, err = NewLogger("detect", Config{})
	assert.Error(t, err)
}
