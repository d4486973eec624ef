package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a structured JSON logger. Batch runs write to log collectors,
// so JSON is the default; use NewConsole for interactive CLI output.
func New() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()
}

// NewConsole creates a human-readable logger for terminal use.
func NewConsole() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Caller().Logger()
}

// NewWithWriter creates a new structured logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithRun attaches the run correlation fields every log line of one batch
// execution must carry.
func WithRun(logger zerolog.Logger, executionID, processingDate string) zerolog.Logger {
	return logger.With().
		Str("execution_id", executionID).
		Str("processing_date", processingDate).
		Logger()
}
