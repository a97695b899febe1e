package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mmcdole/yama/internal/anilist"
	"github.com/mmcdole/yama/internal/domain"
)

const (
	episodeDirPrefix = "episode_"
	thumbnailFile    = "thumbnail.jpg"
)

// Tools probes episode files. Implemented by media.Toolkit.
type Tools interface {
	Duration(ctx context.Context, path string) (float64, error)
	Thumbnail(ctx context.Context, src, dst string) error
}

// Episode is one video file of a title
type Episode struct {
	Number        int    // 1-based position in the title
	Name          string // File name including extension
	Path          string
	Metadata      domain.VideoMetadata
	ThumbnailPath string // Empty if no thumbnail could be generated
	MetadataPath  string // Watch progress record
}

// NewEpisode builds an episode, generating its progress record and
// thumbnail only when they are not already on disk.
//
// A file the duration probe rejects is reported as domain.ErrInvalidMedia.
// A failed thumbnail is logged and leaves ThumbnailPath empty; the next
// construction tries again.
func NewEpisode(ctx context.Context, path string, ordinal int, tools Tools, logger *slog.Logger) (*Episode, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := filepath.Base(path)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	dir := filepath.Join(filepath.Dir(path), anilist.MetadataDir, episodeDirPrefix+strconv.Itoa(ordinal))

	created := !dirExists(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	ep := &Episode{
		Number:       ordinal,
		Name:         name,
		Path:         path,
		MetadataPath: filepath.Join(dir, stem+".md"),
	}

	if !fileExists(ep.MetadataPath) {
		duration, err := tools.Duration(ctx, path)
		if err != nil {
			// Only undo our own mkdir. The directory is keyed by position and
			// may hold the records of whichever file used to sit there.
			if created {
				os.Remove(dir)
			}
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidMedia, name, err)
		}
		if err := WriteDefaultProgress(ep.MetadataPath, duration); err != nil {
			return nil, err
		}
	}

	thumb := filepath.Join(dir, thumbnailFile)
	if !fileExists(thumb) {
		if err := tools.Thumbnail(ctx, path, thumb); err != nil {
			logger.Warn("failed to generate thumbnail", "episode", name, "error", err)
			os.Remove(thumb)
		}
	}
	if fileExists(thumb) {
		ep.ThumbnailPath = thumb
	}

	md, err := ReadProgress(ep.MetadataPath)
	if err != nil {
		return nil, err
	}
	ep.Metadata = md

	return ep, nil
}

// helperRecordPath is where the player script leaves updated progress
func (e *Episode) helperRecordPath() string {
	return strings.TrimSuffix(e.Path, filepath.Ext(e.Path)) + ".md"
}

// Reload picks up the record written by the player helper, if any,
// and re-reads the progress.
func (e *Episode) Reload() error {
	helper := e.helperRecordPath()
	if err := os.Rename(helper, e.MetadataPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	return e.Sync()
}

// Sync re-reads the cached progress record
func (e *Episode) Sync() error {
	md, err := ReadProgress(e.MetadataPath)
	if err != nil {
		return err
	}
	e.Metadata = md
	return nil
}

// ToggleWatched flips the watched flag and persists it
func (e *Episode) ToggleWatched() error {
	prev := e.Metadata
	e.Metadata.ToggleWatched()
	if err := WriteProgress(e.MetadataPath, e.Metadata); err != nil {
		e.Metadata = prev
		return err
	}
	return nil
}

// SetWatched persists watched, toggling only if the state differs
func (e *Episode) SetWatched(watched bool) error {
	if e.Metadata.Watched == watched {
		return nil
	}
	return e.ToggleWatched()
}

// Renumber sets the display position
func (e *Episode) Renumber(n int) {
	e.Number = n
}

func (e *Episode) Thumbnail() string    { return e.ThumbnailPath }
func (e *Episode) Description() string  { return e.Metadata.Description() }
func (e *Episode) DisplayTitle() string { return e.Name }
func (e *Episode) Kind() domain.MetaKind {
	return domain.MetaEpisode
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
