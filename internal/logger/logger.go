// Package logger wires structured logging the way
// joshuapare/hivekit's cmd/hiveexplorer/logger package does: a
// package-level *slog.Logger that discards everything until the driver
// calls Init, used for informational driver messages and VM trace output.
// Diagnostics never come through here — warnings and fatal errors are
// rendered through internal/diag.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the global logger, initialized to discard all output by default.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Enabled bool       // if false, all logging is discarded
	Level   slog.Level // minimum level; LevelInfo when zero and Enabled
}

// Init configures the global logger. Call from main() before any log
// calls; cmd/tauc calls it from its root command's PersistentPreRun.
func Init(opts Options) {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}
	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	L = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
