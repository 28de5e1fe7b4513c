package logging

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the supported log levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Logger wraps slog.Logger with component-scoped structured logging
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new logger with the specified level and component name
func NewLogger(level LogLevel, component string) *Logger {
	var slogLevel slog.Level

	switch strings.ToLower(string(level)) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler).With("component", component)

	return &Logger{logger}
}

// Default returns an info-level logger for the given component
func Default(component string) *Logger {
	return NewLogger(LogLevelInfo, component)
}

// With returns a Logger that includes the given attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}
