package sparsecache

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with sparsecache-specific field helpers so log
// lines carry consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler selects
// a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON-formatted logs to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NewTextLogger creates a Logger that writes text-formatted logs to stderr.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{Logger: slog.New(handler)}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{Logger: slog.New(handler)}
}

// WithCache adds the cache location field.
func (l *Logger) WithCache(cacheInfo string) *Logger {
	return &Logger{Logger: l.Logger.With("cache", cacheInfo)}
}

// WithPageType adds the page-type field.
func (l *Logger) WithPageType(pageType string) *Logger {
	return &Logger{Logger: l.Logger.With("page_type", pageType)}
}

// WithShards adds the shard-count field.
func (l *Logger) WithShards(n int) *Logger {
	return &Logger{Logger: l.Logger.With("shards", n)}
}
