package strata

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with strata-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithTable adds a table field to the logger.
func (l *Logger) WithTable(table string) *Logger {
	return &Logger{
		Logger: l.Logger.With("table", table),
	}
}

// WithShard adds a shard field to the logger.
func (l *Logger) WithShard(shard uint16) *Logger {
	return &Logger{
		Logger: l.Logger.With("shard", shard),
	}
}

// WithBucket adds a bucket field to the logger.
func (l *Logger) WithBucket(bucket uint64) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket", bucket),
	}
}

// LogView logs a read transaction.
func (l *Logger) LogView(duration time.Duration, err error) {
	if err != nil {
		l.Error("view failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.Debug("view completed",
			"duration", duration,
		)
	}
}

// LogUpdate logs a write transaction.
func (l *Logger) LogUpdate(duration time.Duration, err error) {
	if err != nil {
		l.Error("update failed",
			"duration", duration,
			"error", err,
		)
	} else {
		l.Debug("update completed",
			"duration", duration,
		)
	}
}

// LogClose logs a database close.
func (l *Logger) LogClose(err error) {
	if err != nil {
		l.Error("close failed",
			"error", err,
		)
	} else {
		l.Info("database closed")
	}
}
