package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/maruel/natural"
	"github.com/mmcdole/yama/internal/anilist"
	"github.com/mmcdole/yama/internal/domain"
	"github.com/sourcegraph/conc/iter"
)

// VideoDetector reports whether a file is a video. Implemented by media.IsVideo.
type VideoDetector func(path string) bool

// Title is one series directory
type Title struct {
	Name string
	Path string
	Data *domain.Metadata // nil until metadata is fetched

	episodes     []*Episode // nil until LoadEpisodes
	episodeNames []string

	tools   Tools
	isVideo VideoDetector
	logger  *slog.Logger
}

// NewTitle creates a Title for the directory at path and ensures its
// metadata directory exists.
func NewTitle(path string, tools Tools, isVideo VideoDetector, logger *slog.Logger) (*Title, error) {
	if logger == nil {
		logger = slog.Default()
	}

	name := filepath.Base(path)
	if name == "" || name == "." || name == string(filepath.Separator) || !utf8.ValidString(name) {
		return nil, fmt.Errorf("%w: invalid directory name %q", domain.ErrParse, name)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrIO, path)
	}

	if err := os.MkdirAll(filepath.Join(path, anilist.MetadataDir), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	return &Title{
		Name:    name,
		Path:    path,
		tools:   tools,
		isVideo: isVideo,
		logger:  logger,
	}, nil
}

type episodeResult struct {
	episode *Episode
	err     error
}

// LoadEpisodes probes the video files of the title. It is a no-op when
// episodes are already loaded, unless refresh is set.
func (t *Title) LoadEpisodes(ctx context.Context, refresh bool) error {
	if t.episodes != nil && !refresh {
		return nil
	}
	episodes, err := t.ProbeEpisodes(ctx)
	if err != nil {
		return err
	}
	t.SetEpisodes(episodes)
	return nil
}

// ProbeEpisodes builds episodes for the video files of the title without
// modifying it, so it may run off the goroutine that owns the Title.
//
// Files that cannot be turned into an episode are logged and skipped;
// the rest are renumbered contiguously.
func (t *Title) ProbeEpisodes(ctx context.Context) ([]*Episode, error) {
	files, err := t.videoFiles()
	if err != nil {
		return nil, err
	}

	// Probing shells out per file; bound it to the number of CPUs.
	results := make([]episodeResult, len(files))
	prober := iter.Iterator[string]{MaxGoroutines: runtime.GOMAXPROCS(0)}
	prober.ForEachIdx(files, func(i int, path *string) {
		ep, err := NewEpisode(ctx, *path, i+1, t.tools, t.logger)
		results[i] = episodeResult{episode: ep, err: err}
	})

	episodes := make([]*Episode, 0, len(results))
	for i, r := range results {
		if r.err != nil {
			t.logger.Warn("skipping episode", "title", t.Name, "file", filepath.Base(files[i]), "error", r.err)
			continue
		}
		r.episode.Renumber(len(episodes) + 1)
		episodes = append(episodes, r.episode)
	}

	t.logger.Debug("probed episodes", "title", t.Name, "count", len(episodes), "skipped", len(files)-len(episodes))
	return episodes, nil
}

// SetEpisodes replaces the episode list
func (t *Title) SetEpisodes(episodes []*Episode) {
	if episodes == nil {
		episodes = []*Episode{}
	}
	names := make([]string, len(episodes))
	for i, ep := range episodes {
		names[i] = ep.Name
	}
	t.episodes = episodes
	t.episodeNames = names
}

// videoFiles lists visible video files in natural order
func (t *Title) videoFiles() ([]string, error) {
	entries, err := os.ReadDir(t.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	var files []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(t.Path, e.Name())
		if t.isVideo != nil && !t.isVideo(path) {
			continue
		}
		files = append(files, path)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return natural.Less(filepath.Base(files[i]), filepath.Base(files[j]))
	})
	return files, nil
}

// EpisodesLoaded reports whether LoadEpisodes has run
func (t *Title) EpisodesLoaded() bool {
	return t.episodes != nil
}

// Len returns the number of loaded episodes
func (t *Title) Len() int {
	return len(t.episodes)
}

// Episode returns the episode at position i
func (t *Title) Episode(i int) (*Episode, bool) {
	if i < 0 || i >= len(t.episodes) {
		return nil, false
	}
	return t.episodes[i], true
}

// Episodes returns the loaded episodes
func (t *Title) Episodes() []*Episode {
	return t.episodes
}

// EpisodeNames returns the display names of the loaded episodes
func (t *Title) EpisodeNames() []string {
	return t.episodeNames
}

// MarkUpTo sets the watched state of every episode before position n.
// They become watched unless all of them already are, in which case
// they become unwatched.
func (t *Title) MarkUpTo(n int) error {
	if n < 0 || n > len(t.episodes) {
		return fmt.Errorf("%w: episode %d of %s", domain.ErrNotFound, n, t.Name)
	}

	watched := false
	for _, ep := range t.episodes[:n] {
		if !ep.Metadata.Watched {
			watched = true
			break
		}
	}

	for _, ep := range t.episodes[:n] {
		if err := ep.SetWatched(watched); err != nil {
			return err
		}
	}
	return nil
}

// IsCached reports whether metadata for this title is on disk
func (t *Title) IsCached() bool {
	return anilist.IsCached(t.Path)
}

func (t *Title) Thumbnail() string {
	if t.Data == nil {
		return ""
	}
	return t.Data.ThumbnailPath
}

func (t *Title) Description() string {
	if t.Data == nil {
		return domain.NoDescription
	}
	return fmt.Sprintf("%s\n\nStudio: %s", t.Data.Summary(), t.Data.Studio)
}

func (t *Title) DisplayTitle() string {
	return t.Data.DisplayTitle(t.Name)
}

func (t *Title) Kind() domain.MetaKind {
	return domain.MetaTitle
}
