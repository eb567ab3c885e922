package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger is the global slog logger instance
	Logger = slog.Default()

	logFile *os.File
)

// Options configures the global logger
type Options struct {
	Level string // debug, info, warn, error
	File  string // optional path; output is mirrored to stdout
}

// Init initializes the global logger with the level from the LOG_LEVEL environment variable
func Init() {
	InitWith(Options{Level: os.Getenv("LOG_LEVEL"), File: os.Getenv("LOG_FILE")})
}

// InitWith initializes the global logger from explicit options.
// A log file that cannot be opened is reported and skipped.
func InitWith(opts Options) {
	levelStr := opts.Level
	if levelStr == "" {
		levelStr = "info"
	}

	var w io.Writer = os.Stdout
	var fileErr error
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fileErr = err
		} else {
			Close()
			logFile = f
			w = io.MultiWriter(os.Stdout, f)
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(levelStr)})

	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized", "level", levelStr, "file", opts.File)
	if fileErr != nil {
		Logger.Warn("Failed to open log file, logging to stdout only", "file", opts.File, "error", fileErr)
	}
}

// ParseLevel maps a level name to a slog level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close releases the log file, if any
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

// With returns a child logger carrying the given attributes
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
