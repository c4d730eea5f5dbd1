package logger

import (
	"fmt"

	"github.com/newthinker/nseetl/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger from the log configuration.
// Extra output paths (e.g. logs/app.log) are added next to stderr.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config

	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		zc.Level = level
	}

	zc.OutputPaths = append(zc.OutputPaths, cfg.OutputPaths...)

	return zc.Build()
}

// Must creates a logger or panics
func Must(cfg config.LogConfig) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
