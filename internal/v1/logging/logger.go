package logging

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

type contextKey string

const (
	// CorrelationIDKey carries the per-connection correlation id.
	CorrelationIDKey contextKey = "correlation_id"
	// UsernameKey carries the authenticated (or claimed) username.
	UsernameKey contextKey = "username"
	// RemoteAddrKey carries the peer address of the connection.
	RemoteAddrKey contextKey = "remote_addr"
)

// Initialize sets up the global logger based on the environment. An empty
// level keeps the encoder default (debug in development, info otherwise).
func Initialize(level string, development bool) error {
	var err error
	once.Do(func() {
		var config zap.Config
		config, err = buildConfig(level, development)
		if err != nil {
			return
		}
		logger, err = config.Build(zap.AddCallerSkip(1))
	})
	return err
}

func buildConfig(level string, development bool) (zap.Config, error) {
	var config zap.Config
	if development {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return config, fmt.Errorf("parsing log level %q: %w", level, err)
		}
		config.Level = zap.NewAtomicLevelAt(lvl)
	}
	return config, nil
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Fallback specific for tests or before init
		l, _ := zap.NewDevelopment()
		return l
	}
	return logger
}

// WithConnection annotates ctx with the fields every per-connection log line
// should carry.
func WithConnection(ctx context.Context, correlationID, remoteAddr string) context.Context {
	ctx = context.WithValue(ctx, CorrelationIDKey, correlationID)
	return context.WithValue(ctx, RemoteAddrKey, remoteAddr)
}

// WithUsername annotates ctx with the session's username once it is known.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// Info logs a message at InfoLevel
func Info(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Info(msg, appendContextFields(ctx, fields)...)
}

// Warn logs a message at WarnLevel
func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, appendContextFields(ctx, fields)...)
}

// Error logs a message at ErrorLevel
func Error(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Error(msg, appendContextFields(ctx, fields)...)
}

// Fatal logs a message at FatalLevel
func Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, appendContextFields(ctx, fields)...)
}

func appendContextFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}

	if cid, ok := ctx.Value(CorrelationIDKey).(string); ok {
		fields = append(fields, zap.String("correlation_id", cid))
	}
	if user, ok := ctx.Value(UsernameKey).(string); ok {
		fields = append(fields, zap.String("username", user))
	}
	if addr, ok := ctx.Value(RemoteAddrKey).(string); ok {
		fields = append(fields, zap.String("remote_addr", addr))
	}

	fields = append(fields, zap.String("service", "secirc"))

	return fields
}
