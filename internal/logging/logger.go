// internal/logging/logger.go
package logging

import (
	"context"
	"errors"
	"fmt"
	"syscall"

	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps Zap with context-aware methods. Every entry automatically
// carries the request ID and trace fields found in the context.
type Logger struct {
	zap    *zap.Logger
	config *Config
}

// NewLogger creates a logger from config. Pass a nil otelProvider to
// write to stdout only.
func NewLogger(cfg *Config, otelProvider log.LoggerProvider) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	core, err := newDualCore(cfg, otelProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to build log cores: %w", err)
	}

	zapLogger := zap.New(core, zapOptions(cfg)...)
	if constant := constantFields(cfg); len(constant) > 0 {
		zapLogger = zapLogger.With(constant...)
	}

	return &Logger{zap: zapLogger, config: cfg}, nil
}

// zapOptions translates caller and stacktrace settings into zap options.
func zapOptions(cfg *Config) []zap.Option {
	var opts []zap.Option
	if cfg.Caller.Enabled {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(cfg.Caller.Skip))
	}
	if cfg.Stacktrace.Level != 0 {
		opts = append(opts, zap.AddStacktrace(cfg.Stacktrace.Level))
	}
	return opts
}

// constantFields returns the configured fields attached to every entry,
// such as the service name.
func constantFields(cfg *Config) []zap.Field {
	fields := make([]zap.Field, 0, len(cfg.Fields))
	for k, v := range cfg.Fields {
		fields = append(fields, zap.String(k, v))
	}
	return fields
}

// newEncoder builds the entry encoder for the given format. Timestamps
// are ISO8601 under the "ts" key in both formats.
func newEncoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "ts"
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case "console":
		return zapcore.NewConsoleEncoder(ec)
	default:
		return zapcore.NewJSONEncoder(ec)
	}
}

// Context-aware logging methods. Each gates on the level before
// assembling context fields, so disabled levels cost only the check.
// Check must run directly in the exported method; another frame in
// between would throw off the configured caller skip.

func (l *Logger) Debug(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

func (l *Logger) DPanic(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.DPanicLevel, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

func (l *Logger) Fatal(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.zap.Check(zapcore.FatalLevel, msg); ce != nil {
		ce.Write(append(ContextFields(ctx), fields...)...)
	}
}

// With returns a child that stamps fields onto every entry it writes.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...), config: l.config}
}

// Named returns a child whose entries carry name as the logger name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name), config: l.config}
}

// Enabled reports whether entries at level would reach the core.
func (l *Logger) Enabled(level zapcore.Level) bool {
	return l.zap.Core().Enabled(level)
}

// Sync flushes buffered entries to the sinks.
func (l *Logger) Sync() error {
	err := l.zap.Sync()
	if err == nil || ignorableSyncError(err) {
		return nil
	}
	return err
}

// Underlying exposes the wrapped zap.Logger for libraries that want one
// directly, echo middleware among them.
func (l *Logger) Underlying() *zap.Logger {
	return l.zap
}

// ignorableSyncError reports whether err is the harmless failure Linux
// returns when syncing stdout or stderr (EINVAL or ENOTTY).
func ignorableSyncError(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	return errno == syscall.EINVAL || errno == syscall.ENOTTY
}
