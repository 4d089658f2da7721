package scenariokit

import (
	"log/slog"
	"strings"
)

// Logger defines the interface for scenario lifecycle logging.
// scenariokit uses structured logging with key-value pairs so that hook
// output (cookie resets, fixture invalidation, screenshot capture) can be
// parsed alongside the BDD runner's own output.
//
// The Logger interface uses variadic arguments in key-value pairs:
//
//	logger.Info("message", "key1", "value1", "key2", "value2")
//
// This approach is compatible with slog, zap, logrus and others.
type Logger interface {
	// Info logs an informational message with optional key-value pairs.
	//
	// Example:
	//   logger.Info("Fixtures invalidated", "count", 3)
	Info(msg string, args ...any)

	// Error logs an error message with optional key-value pairs.
	Error(msg string, args ...any)

	// Warn logs a warning message with optional key-value pairs.
	// Recoverable hook failures, such as a screenshot that could not be
	// written, are reported at this level.
	//
	// Example:
	//   logger.Warn("Screenshot capture failed", "path", path, "error", err)
	Warn(msg string, args ...any)

	// Debug logs a debug message with optional key-value pairs.
	Debug(msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l falls back to slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// ParseLogLevel maps a config log level ("debug", "info", "warn",
// "verbose", ...) onto a slog.Level. Unknown values map to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "verbose", "trace":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "silent":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// noopLogger discards everything. Used when no logger is supplied.
type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Debug(string, ...any) {}
