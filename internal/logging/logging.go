// Package logging builds the JSON loggers used by the command-line tools.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option adjusts the zap configuration before the logger is built.
type Option func(*zap.Config)

// WithOutputPaths replaces the default stderr sink.
func WithOutputPaths(paths ...string) Option {
	return func(c *zap.Config) {
		c.OutputPaths = paths
	}
}

// New returns a production JSON logger at level ("debug", "info", "warn",
// "error"). An empty level means info. Logs go to stderr so tool output
// on stdout stays parseable.
func New(level string, opts ...Option) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}

	for _, o := range opts {
		o(&cfg)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	return logger, nil
}
