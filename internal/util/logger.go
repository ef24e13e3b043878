package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName identifies this service in logs and traces
const ServiceName = "listing-sync"

var logger *zap.Logger

// InitLogger initializes the global logger; every entry carries the service name
func InitLogger(env string) error {
	l, err := newLogger(env)
	if err != nil {
		return err
	}

	logger = l
	zap.ReplaceGlobals(logger)
	return nil
}

func newLogger(env string, opts ...zap.Option) (*zap.Logger, error) {
	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := config.Build(opts...)
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", ServiceName)), nil
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	if logger == nil {
		l, err := newLogger("development")
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
	}
	return logger
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
