// Package logging builds the zap loggers used across the server.
package logging

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environments accepted by New
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// New returns a logger for env writing to stderr.
// An empty level picks debug in development and info otherwise.
func New(env, level string) (*zap.Logger, error) {
	return NewWithWriter(env, level, os.Stderr)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(env, level string, out io.Writer) (*zap.Logger, error) {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	lvl := zapcore.InfoLevel
	switch env {
	case EnvDevelopment, "":
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
		lvl = zapcore.DebugLevel
	case EnvProduction:
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, errors.Errorf("unknown environment %q", env)
	}

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, errors.Wrap(err, "parse log level")
		}
		lvl = parsed
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), lvl)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}
