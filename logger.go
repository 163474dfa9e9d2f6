package tileconn

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with tileconn-specific context.
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
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithLevel adds a hierarchy level field to the logger. The key is
// hierarchy_level; level is the slog severity key.
func (l *Logger) WithLevel(level uint8) *Logger {
	return &Logger{
		Logger: l.Logger.With("hierarchy_level", level),
	}
}

// LogBuild logs the outcome of a build over several levels.
func (l *Logger) LogBuild(ctx context.Context, levels []uint8, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"levels", levels,
			"duration", duration,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"levels", levels,
			"duration", duration,
		)
	}
}

// LogLevelBuilt logs the statistics of one built level. A level without a
// single readable tile is logged as a warning.
func (l *Logger) LogLevelBuilt(ctx context.Context, s *LevelStats) {
	attrs := []any{
		"hierarchy_level", s.Level,
		"tiles", s.Tiles,
		"readable", s.Readable,
		"absent", s.Absent,
		"unreadable", s.Unreadable,
		"regions", s.Regions,
		"adjacencies", s.Adjacencies,
		"duration", s.Duration,
	}
	switch {
	case s.Tiles > 0 && s.Readable == 0:
		l.WarnContext(ctx, "level has no readable tiles", attrs...)
	case s.Malformed > 0:
		l.WarnContext(ctx, "level built with malformed edges", append(attrs, "malformed", s.Malformed)...)
	default:
		l.InfoContext(ctx, "level built", attrs...)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, op string, level uint8, colors int, err error) {
	if err != nil {
		l.DebugContext(ctx, "query rejected",
			"op", op,
			"hierarchy_level", level,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"op", op,
			"hierarchy_level", level,
			"colors", colors,
		)
	}
}

// LogSnapshot logs a snapshot save or load.
func (l *Logger) LogSnapshot(ctx context.Context, op, name string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot "+op+" failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot "+op,
			"name", name,
		)
	}
}
