package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 3
	logFileMaxAgeDays = 28
)

// Config selects where and how verbosely the CLI logs.
type Config struct {
	Level string
	// File, when set, receives JSON records through a size-rotated writer.
	// Error records are then mirrored to Console in friendly form.
	File    string
	Console io.Writer
}

// New builds the CLI logger. The returned closer releases the log file and
// must be called once the command finishes.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ConfigLevelStringToSlogLevel(cfg.Level),
		ReplaceAttr: replaceLevelName,
	}
	friendly := NewFriendlyErrorHandler(console)

	file := strings.TrimSpace(cfg.File)
	if file == "" {
		primary := slog.NewTextHandler(console, opts)
		return slog.New(NewDualHandler(primary, friendly, true)), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	writer := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
	}
	primary := slog.NewJSONHandler(writer, opts)
	return slog.New(NewDualHandler(primary, friendly, false)), writer, nil
}

func replaceLevelName(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelTrace {
		attr.Value = slog.StringValue("TRACE")
	}
	return attr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
