// Package logger builds the zap logger shared by every engine component.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds configuration for the logger.
type Config struct {
	// Environment is added to every entry. "development" enables the console encoder by default.
	Environment string
	// LogLevel is one of debug, info, warn or error.
	LogLevel string
	// ServiceName is added to every entry as "service".
	ServiceName string
	// Encoding forces "json" or "console". Empty picks by environment.
	Encoding string
}

// New creates a new logger writing to stderr with the given configuration.
func New(cfg Config) *zap.Logger {
	return build(cfg, zapcore.Lock(os.Stderr))
}

func build(cfg Config, out zapcore.WriteSyncer) *zap.Logger {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "oxy-frac"
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch encodingFor(cfg) {
	case "console":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, out, getLogLevel(cfg.LogLevel))
	return zap.New(core, zap.AddCaller()).With(
		zap.String("service", cfg.ServiceName),
		zap.String("environment", cfg.Environment),
	)
}

func encodingFor(cfg Config) string {
	switch strings.ToLower(cfg.Encoding) {
	case "json":
		return "json"
	case "console":
		return "console"
	}
	if cfg.Environment == "development" {
		return "console"
	}
	return "json"
}

// getLogLevel converts a string log level to a zap.AtomicLevel, defaulting to info.
func getLogLevel(level string) zap.AtomicLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn", "warning":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}
