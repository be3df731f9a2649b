// Package logging - zap logger construction.
package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and encoding.
type Config struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level" yaml:"level"`
	// Encoding is console or json.
	Encoding string `json:"encoding" yaml:"encoding"`
}

// DefaultConfig returns info level console logging.
func DefaultConfig() Config {
	return Config{Level: "info", Encoding: "console"}
}

// Validate checks the level and encoding.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return errors.Wrapf(err, "log level %q", c.Level)
	}
	switch c.Encoding {
	case "console", "json":
		return nil
	}
	return errors.Errorf("log encoding %q must be console or json", c.Encoding)
}

// NewLoggerConfig returns the zap configuration for a Config. Logs go to stderr so that
// stdout stays free for command output.
func NewLoggerConfig(c Config) (zap.Config, error) {
	if err := c.Validate(); err != nil {
		return zap.Config{}, err
	}
	level, _ := zapcore.ParseLevel(c.Level)

	encodeLevel := zapcore.CapitalColorLevelEncoder
	if c.Encoding == "json" {
		encodeLevel = zapcore.LowercaseLevelEncoder
	}
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: c.Encoding,
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    encodeLevel,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
	}, nil
}

// NewLogger builds a named logger.
//
// Arguments:
//   - name: The logger name, e.g. "detect".
//   - c: The level and encoding.
//
// Returns:
//   - *zap.Logger: The logger. Call Sync before exiting.
//   - error: An error if the configuration is invalid.
func NewLogger(name string, c Config) (*zap.Logger, error) {
	cfg, err := NewLoggerConfig(c)
	if err != nil {
		return nil, err
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger.Named(name), nil
}
