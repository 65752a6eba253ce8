// Package logger wraps log/slog with environment driven configuration and a
// process-wide default logger.
package logger

import (
	"log/slog"
)

// Logger is the global logger instance
var Logger *slog.Logger

func init() {
	Logger = NewLogger(LoadConfig())
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// SetDefault replaces the global logger. A nil logger is ignored.
func SetDefault(l *slog.Logger) {
	if l != nil {
		Logger = l
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
