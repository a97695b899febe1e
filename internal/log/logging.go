// Package log builds the application logger. Records go to a JSON file so
// they never reach the terminal the UI is drawing on.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/yama/internal/config"
	"github.com/mmcdole/yama/internal/domain"
)

// Setup opens the file named by cfg for appending and returns a JSON
// logger writing to it. Closing the returned io.Closer releases the file.
func Setup(cfg *config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	path, err := expandHome(cfg.File)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("%w: log directory: %v", domain.ErrIO, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: log file: %v", domain.ErrIO, err)
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	// Several runs append to the same file
	return slog.New(handler).With("pid", os.Getpid()), f, nil
}

// ParseLevel reads a level name such as "debug" or "WARN+2". Unknown
// names mean info.
func ParseLevel(name string) slog.Level {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func expandHome(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: no log file configured", domain.ErrConfig)
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
