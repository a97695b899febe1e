package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mmcdole/yama/internal/domain"
)

// fakeTools counts tool invocations and writes a dummy thumbnail
type fakeTools struct {
	mu         sync.Mutex
	probes     int
	thumbs     int
	duration   float64
	badFiles   map[string]bool // base names the probe rejects
	failThumbs bool
}

func newFakeTools() *fakeTools {
	return &fakeTools{duration: 1440, badFiles: map[string]bool{}}
}

func (f *fakeTools) Duration(ctx context.Context, path string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if f.badFiles[filepath.Base(path)] {
		return 0, &domain.ToolError{Command: "ffprobe", Err: errors.New("exit status 1")}
	}
	return f.duration, nil
}

func (f *fakeTools) Thumbnail(ctx context.Context, src, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thumbs++
	if f.failThumbs {
		return &domain.ToolError{Command: "ffmpeg", Err: errors.New("exit status 1")}
	}
	return os.WriteFile(dst, []byte("frame"), 0644)
}

func (f *fakeTools) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes, f.thumbs
}

// byExtension treats .mkv and .mp4 as video
func byExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".mkv" || ext == ".mp4"
}

// makeTree creates dirs and empty files under root. Entries ending in
// "/" are directories.
func makeTree(t *testing.T, root string, entries ...string) {
	t.Helper()
	for _, e := range entries {
		p := filepath.Join(root, filepath.FromSlash(e))
		if strings.HasSuffix(e, "/") {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("video"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}
