package util

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *slog.Logger

// LogOptions configures the process logger.
type LogOptions struct {
	Level string
	// File, when set, receives a rotated copy of every log line.
	File string
}

func InitLogger() {
	InitLoggerWithOptions(LogOptions{})
}

func InitLoggerWithOptions(opts LogOptions) {
	var out io.Writer = os.Stdout
	if opts.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     14, // days
			Compress:   true,
		})
	}

	// Default to JSON handler for production
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	})
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func GetLogger() *slog.Logger {
	if Logger == nil {
		InitLogger()
	}
	return Logger
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
