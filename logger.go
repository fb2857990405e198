package bimtree

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/bimtree/memtree"
)

// Logger wraps slog.Logger with bimtree-specific context.
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
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithModel adds a model field to the logger.
func (l *Logger) WithModel(model string) *Logger {
	return &Logger{
		Logger: l.Logger.With("model", model),
	}
}

// LogIngest logs a store call.
func (l *Logger) LogIngest(ctx context.Context, model string, stored, failed int, err error) {
	switch {
	case err != nil:
		l.ErrorContext(ctx, "ingest failed",
			"model", model,
			"stored", stored,
			"error", err,
		)
	case failed > 0:
		l.WarnContext(ctx, "ingest completed with failures",
			"model", model,
			"stored", stored,
			"failed", failed,
		)
	default:
		l.InfoContext(ctx, "ingest completed",
			"model", model,
			"stored", stored,
		)
	}
}

// LogRefresh logs a memory tree rebuild.
func (l *Logger) LogRefresh(ctx context.Context, report memtree.RefreshReport, err error) {
	if err != nil {
		l.ErrorContext(ctx, "refresh failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "refresh completed",
		"models", report.Models,
		"components", report.Components,
		"skipped", report.Skipped,
		"conflicts", len(report.Conflicts),
		"failed_partitions", len(report.Failed),
		"duration", report.Duration,
	)
}

// LogDelete logs a model deletion.
func (l *Logger) LogDelete(ctx context.Context, model string, deleted bool, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"model", model,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "delete completed",
			"model", model,
			"deleted", deleted,
		)
	}
}

// LogQuery logs a query.
func (l *Logger) LogQuery(ctx context.Context, kind string, models, results int) {
	l.DebugContext(ctx, "query completed",
		"kind", kind,
		"models", models,
		"results", results,
	)
}
