package log

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmcdole/yama/internal/config"
	"github.com/mmcdole/yama/internal/domain"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"Error":   slog.LevelError,
		"warn+2":  slog.LevelWarn + 2,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "yama.log")

	logger, closer, err := Setup(&config.LoggingConfig{File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Debug("scanned library", "count", 3)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"msg":"scanned library"`, `"count":3`, `"pid":`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log output missing %s: %s", want, data)
		}
	}
}

func TestSetupNeedsAFile(t *testing.T) {
	if _, _, err := Setup(&config.LoggingConfig{}); !errors.Is(err, domain.ErrConfig) {
		t.Errorf("Setup() error = %v, want ErrConfig", err)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := map[string]string{
		"~/.local/yama.log": filepath.Join(home, ".local/yama.log"),
		"/var/log/yama.log": "/var/log/yama.log",
		"~other/yama.log":   "~other/yama.log",
	}
	for in, want := range tests {
		if got, _ := expandHome(in); got != want {
			t.Errorf("expandHome(%q) = %q, want %q", in, got, want)
		}
	}
}
