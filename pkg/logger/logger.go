// Package logger builds the application's structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger built by New.
type Options struct {
	Level string

	// Directory for rotated log files. Empty disables file output.
	Directory  string
	AppName    string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Pretty switches to the text handler for local development.
	Pretty bool
}

// New returns a slog.Logger writing JSON to stdout and, when a directory is
// configured, to a size-rotated file.
func New(opts Options) *slog.Logger {
	var out io.Writer = os.Stdout

	if opts.Directory != "" {
		name := opts.AppName
		if name == "" {
			name = "app"
		}
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Directory, name+".log"),
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}

	handlerOpts := &slog.HandlerOptions{Level: parseLevel(opts.Level)}

	var handler slog.Handler
	if opts.Pretty {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
