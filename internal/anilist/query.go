package anilist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/media"
)

// On-disk layout inside each title directory
const (
	MetadataDir   = ".metadata"
	DataFile      = "data.json"
	ThumbnailFile = "thumbnail.jpg"
)

// Paths returns the cached response and thumbnail paths for a title directory
func Paths(titleDir string) (data, thumbnail string) {
	dir := filepath.Join(titleDir, MetadataDir)
	return filepath.Join(dir, DataFile), filepath.Join(dir, ThumbnailFile)
}

// IsCached reports whether both cache artifacts exist for a title directory
func IsCached(titleDir string) bool {
	dataPath, thumbPath := Paths(titleDir)
	return fileExists(dataPath) && fileExists(thumbPath)
}

// TryQuery returns metadata for the title in titleDir, reading the on-disk
// cache when both artifacts are present and querying AniList otherwise.
// The result is stamped with id.
func (c *Client) TryQuery(ctx context.Context, titleDir, name string, id int) (*domain.Metadata, error) {
	dataPath, thumbPath := Paths(titleDir)

	if IsCached(titleDir) {
		m, err := c.loadCached(titleDir, dataPath, thumbPath)
		if err == nil {
			m.ID = id
			c.logger.Debug("loaded cached metadata", "title", name)
			return m, nil
		}
		c.logger.Warn("cached metadata unusable, fetching again", "title", name, "error", err)
		c.manifest.Invalidate(titleDir)
	}

	m, err := c.fetch(ctx, titleDir, name, dataPath, thumbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %q: %w", name, err)
	}
	m.ID = id
	return m, nil
}

// Invalidate drops the cached artifacts of a title so the next TryQuery fetches
func (c *Client) Invalidate(titleDir string) error {
	c.manifest.Invalidate(titleDir)

	dataPath, thumbPath := Paths(titleDir)
	for _, p := range []string{dataPath, thumbPath} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", domain.ErrIO, err)
		}
	}
	return nil
}

func (c *Client) loadCached(titleDir, dataPath, thumbPath string) (*domain.Metadata, error) {
	data, err := os.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}

	entry, ok := c.manifest.Get(titleDir)
	if ok && !entry.Valid(data) {
		return nil, fmt.Errorf("%w: checksum or version mismatch", domain.ErrCacheCorrupt)
	}

	m, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCacheCorrupt, err)
	}

	if !ok {
		// Written before the manifest existed; adopt it.
		if err := c.manifest.Put(titleDir, m.MediaID, data); err != nil {
			c.logger.Warn("failed to record cached metadata", "dir", titleDir, "error", err)
		}
	}

	m.ThumbnailPath = thumbPath
	m.FromCache = true
	return m, nil
}

func (c *Client) fetch(ctx context.Context, titleDir, name, dataPath, thumbPath string) (*domain.Metadata, error) {
	data, err := c.query(ctx, name)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if resp.Data.Media == nil {
		return nil, fmt.Errorf("%w: no catalog entry for %q", domain.ErrNotFound, name)
	}
	imageURL := resp.Data.Media.imageURL()
	if imageURL == "" {
		return nil, fmt.Errorf("%w: %q has no artwork", domain.ErrNotFound, name)
	}

	if err := os.MkdirAll(filepath.Dir(dataPath), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if err := writeFileAtomic(dataPath, data); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	if err := c.download(ctx, imageURL, thumbPath); err != nil {
		return nil, err
	}
	if err := media.FitWidth(thumbPath, c.bannerWidth); err != nil {
		c.logger.Warn("failed to resize banner", "title", name, "error", err)
	}

	if err := c.manifest.Put(titleDir, resp.Data.Media.ID, data); err != nil {
		c.logger.Warn("failed to record fetched metadata", "title", name, "error", err)
	}

	m := toMetadata(resp.Data.Media)
	m.ThumbnailPath = thumbPath
	c.checkMatch(name, m)

	c.logger.Info("fetched metadata", "title", name, "media_id", m.MediaID)
	return m, nil
}

// checkMatch warns when the search returned something that looks unrelated
func (c *Client) checkMatch(name string, m *domain.Metadata) {
	query := strings.ToLower(name)
	best := -1
	for _, candidate := range []string{m.English, m.Romaji} {
		if candidate == "" {
			continue
		}
		d := fuzzy.LevenshteinDistance(query, strings.ToLower(candidate))
		if best < 0 || d < best {
			best = d
		}
	}
	if best > len(query)/2 {
		c.logger.Warn("catalog match differs from directory name",
			"title", name, "match", m.DisplayTitle(name), "distance", best)
	}
}

func decode(data []byte) (*domain.Metadata, error) {
	var resp queryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Media == nil {
		return nil, errors.New("response has no media")
	}
	return toMetadata(resp.Data.Media), nil
}

func toMetadata(dto *mediaDTO) *domain.Metadata {
	return &domain.Metadata{
		MediaID:     dto.ID,
		Romaji:      dto.Title.Romaji,
		English:     dto.Title.English,
		Native:      dto.Title.Native,
		Description: cleanDescription(dto.Description),
		Genres:      dto.Genres,
		Studio:      mainStudio(dto.Studios.Edges),
	}
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
