// Package media wraps the external tools used to inspect episode files.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mmcdole/yama/internal/domain"
)

// Runner executes a tool and returns its stdout
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Toolkit probes durations with ffprobe and grabs frames with ffmpeg
type Toolkit struct {
	ffprobe string
	ffmpeg  string
	runner  Runner
	logger  *slog.Logger
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// NewToolkit creates a Toolkit. Empty paths default to the tools on PATH.
func NewToolkit(ffprobe, ffmpeg string, runner Runner, logger *slog.Logger) *Toolkit {
	if logger == nil {
		logger = slog.Default()
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Toolkit{ffprobe: ffprobe, ffmpeg: ffmpeg, runner: runner, logger: logger}
}

// Duration returns the length of a video in seconds
func (t *Toolkit) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.Run(ctx, t.ffprobe, "-v", "quiet", "-print_format", "json", "-show_format", path)
	if err != nil {
		return 0, err
	}

	var result probeResult
	if err := json.Unmarshal(out, &result); err != nil {
		return 0, fmt.Errorf("%w: ffprobe output: %v", domain.ErrParse, err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: no duration for %s", domain.ErrInvalidMedia, path)
	}
	return d, nil
}

// Thumbnail extracts a representative frame of src into dst as JPEG
func (t *Toolkit) Thumbnail(ctx context.Context, src, dst string) error {
	_, err := t.runner.Run(ctx, t.ffmpeg,
		"-i", src,
		"-vf", "thumbnail",
		"-frames:v", "1",
		"-f", "mjpeg",
		"-hide_banner", "-nostdin", "-nostats",
		"-loglevel", "quiet",
		dst,
	)
	if err != nil {
		return err
	}
	t.logger.Debug("generated thumbnail", "source", src, "thumbnail", dst)
	return nil
}
