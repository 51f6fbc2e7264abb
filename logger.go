package hdql

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with engine-specific helpers so query logging
// uses consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. If handler is nil, a
// text handler to stderr at info level is used.
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
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogParse logs a parse attempt.
func (l *Logger) LogParse(ctx context.Context, query string, err error) {
	if err != nil {
		l.WarnContext(ctx, "parse failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "parse completed",
			"query", query,
		)
	}
}

// LogPlan logs a compiled plan.
func (l *Logger) LogPlan(ctx context.Context, ops int, index string, cost float64) {
	l.DebugContext(ctx, "plan compiled",
		"ops", ops,
		"index", index,
		"cost", cost,
	)
}

// LogQuery logs a full query run.
func (l *Logger) LogQuery(ctx context.Context, query string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"query", query,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "query completed",
			"query", query,
			"elapsed", elapsed,
		)
	}
}

// LogCacheHit logs a result served from the cache.
func (l *Logger) LogCacheHit(ctx context.Context, query string) {
	l.DebugContext(ctx, "cache hit",
		"query", query,
	)
}
