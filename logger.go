package vmemgo

import (
	"log/slog"
	"os"

	"github.com/hupe1980/vmemgo/driver"
)

// Logger wraps slog.Logger with vmemgo-specific context.
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
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDevice adds a device field to the logger.
func (l *Logger) WithDevice(device driver.DeviceID) *Logger {
	return &Logger{
		Logger: l.Logger.With("device", int32(device)),
	}
}

// LogCreate logs allocator creation.
func (l *Logger) LogCreate(base driver.DevicePtr, capacity, granularity uint64) {
	l.Info("allocator created",
		"base", base.String(),
		"capacity", capacity,
		"granularity", granularity,
	)
}

// LogAlloc logs an allocation.
func (l *Logger) LogAlloc(ptr driver.DevicePtr, requested, granted, watermark uint64, err error) {
	if err != nil {
		l.Warn("alloc failed",
			"requested", requested,
			"watermark", watermark,
			"error", err,
		)
	} else {
		l.Debug("alloc completed",
			"ptr", ptr.String(),
			"requested", requested,
			"granted", granted,
			"watermark", watermark,
		)
	}
}

// LogFree logs a free operation. trimmed is the number of bytes the
// watermark dropped by.
func (l *Logger) LogFree(ptr driver.DevicePtr, numBytes, trimmed, watermark uint64, err error) {
	if err != nil {
		l.Warn("free failed",
			"ptr", ptr.String(),
			"bytes", numBytes,
			"error", err,
		)
	} else {
		l.Debug("free completed",
			"ptr", ptr.String(),
			"bytes", numBytes,
			"trimmed", trimmed,
			"watermark", watermark,
		)
	}
}

// LogClose logs allocator teardown.
func (l *Logger) LogClose(err error) {
	if err != nil {
		l.Error("close failed", "error", err)
	} else {
		l.Debug("allocator closed")
	}
}
