// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level maps a LOG_LEVEL value to a slog level. Unknown values mean info.
func Level(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New returns a JSON logger writing to w and, when file is set, to a rotated
// log file. The returned closer flushes the file.
func New(w io.Writer, level, file string) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		w = io.MultiWriter(w, rotated)
		closer = rotated
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: Level(level)})
	return slog.New(h), closer
}

// Setup installs the logger as the default one.
func Setup(level, file string) io.Closer {
	logger, closer := New(os.Stdout, level, file)
	slog.SetDefault(logger)
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
