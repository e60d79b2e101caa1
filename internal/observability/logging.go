// Package observability builds the zap logger shared by the simulation, the
// script engine, the AI driver and the runner.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/tactica/internal/config"
)

// NewLogger creates the root logger named "tactica".
//
// The json format keeps every line. The console format writes no stack
// traces. Durations are written in milliseconds.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	zapCfg, err := formatConfig(cfg.Format)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
		zapCfg.ErrorOutputPaths = []string{cfg.Output}
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger.Named("tactica"), nil
}

func formatConfig(format string) (zap.Config, error) {
	switch format {
	case "json":
		c := zap.NewProductionConfig()
		c.Sampling = nil
		return c, nil
	case "console":
		c := zap.NewDevelopmentConfig()
		c.DisableStacktrace = true
		return c, nil
	}
	return zap.Config{}, fmt.Errorf("unknown log format %q", format)
}
