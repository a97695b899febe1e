// Package library scans a series directory into titles and episodes and
// keeps their metadata and watch progress current.
//
// A Library is not safe for concurrent use; it is owned by one goroutine
// (see the service package) and only its fetch fan-out runs in parallel.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"github.com/mmcdole/yama/internal/domain"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// MetadataSource resolves catalog metadata for one title directory.
// Implemented by anilist.Client.
type MetadataSource interface {
	TryQuery(ctx context.Context, titleDir, name string, id int) (*domain.Metadata, error)
	Invalidate(titleDir string) error
}

// CommandRunner runs a platform command line. Implemented by process.Runner.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) ([]byte, error)
}

// Player plays episodes and blocks until the player exits.
// Implemented by player.Launcher.
type Player interface {
	Run(ctx context.Context, args ...string) error
	Play(ctx context.Context, path string, startSeconds float64) error
}

// Deps are the collaborators of a Library
type Deps struct {
	Source  MetadataSource
	Tools   Tools
	IsVideo VideoDetector
	Runner  CommandRunner
	Player  Player
	Logger  *slog.Logger
}

// Library is the ordered set of titles under a series root
type Library struct {
	root   string
	titles []*Title

	source  MetadataSource
	tools   Tools
	isVideo VideoDetector
	runner  CommandRunner
	player  Player
	logger  *slog.Logger
}

// FetchFailure describes a title whose metadata could not be resolved
type FetchFailure struct {
	ID   int
	Name string
	Err  error
}

// FetchReport summarizes a FetchAllMetadata run
type FetchReport struct {
	Fetched int // from the network
	Cached  int // from disk
	Failed  []FetchFailure
}

// New creates an empty Library
func New(deps Deps) *Library {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Library{
		source:  deps.Source,
		tools:   deps.Tools,
		isVideo: deps.IsVideo,
		runner:  deps.Runner,
		player:  deps.Player,
		logger:  deps.Logger,
	}
}

// Scan replaces the titles with one per visible subdirectory of root,
// in natural order. Directories that are not valid titles are skipped.
func (l *Library) Scan(root string) error {
	if root == "" {
		return domain.ErrConfig
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("%w: cannot read series path: %v", domain.ErrIO, err)
	}

	var titles []*Title
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(root, e.Name())
		if !isDir(e, path) {
			continue
		}

		t, err := NewTitle(path, l.tools, l.isVideo, l.logger)
		if err != nil {
			l.logger.Warn("skipping title", "path", path, "error", err)
			continue
		}
		titles = append(titles, t)
	}

	sort.SliceStable(titles, func(i, j int) bool {
		return natural.Less(titles[i].Name, titles[j].Name)
	})

	l.root = root
	l.titles = titles

	l.logger.Info("scanned series path", "root", root, "titles", len(titles))
	return nil
}

func isDir(e os.DirEntry, path string) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink != 0 {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
	return false
}

type fetchResult struct {
	id   int // index the request was issued for
	data *domain.Metadata
	err  error
}

// FetchAllMetadata resolves metadata for every title at once. Results are
// applied as they arrive, routed by the id stamped into each result. A
// failing or panicking lookup leaves that title without metadata and does
// not affect the others.
func (l *Library) FetchAllMetadata(ctx context.Context) FetchReport {
	var report FetchReport
	if len(l.titles) == 0 {
		return report
	}

	results := make(chan fetchResult, len(l.titles))

	wg := conc.NewWaitGroup()
	for i, t := range l.titles {
		id, dir, name := i, t.Path, t.Name
		wg.Go(func() {
			r := fetchResult{id: id}
			var pc panics.Catcher
			pc.Try(func() {
				r.data, r.err = l.source.TryQuery(ctx, dir, name, id)
			})
			if rec := pc.Recovered(); rec != nil {
				r.data, r.err = nil, rec.AsError()
			}
			results <- r
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err == nil && r.data == nil {
			r.err = errors.New("empty result")
		}
		if r.err != nil {
			name := l.titles[r.id].Name
			l.logger.Error("failed to fetch metadata", "title", name, "error", r.err)
			report.Failed = append(report.Failed, FetchFailure{ID: r.id, Name: name, Err: r.err})
			continue
		}

		t, ok := l.Title(r.data.ID)
		if !ok {
			l.logger.Error("metadata routed to unknown title", "id", r.data.ID)
			report.Failed = append(report.Failed, FetchFailure{ID: r.id, Name: l.titles[r.id].Name, Err: domain.ErrNotFound})
			continue
		}
		t.Data = r.data

		if r.data.FromCache {
			report.Cached++
		} else {
			report.Fetched++
		}
	}

	l.logger.Info("metadata fetch complete",
		"fetched", report.Fetched, "cached", report.Cached, "failed", len(report.Failed))
	return report
}

// MetadataJob returns a lookup of metadata for title i. The returned
// function touches no library state and may run on any goroutine; store
// its result with SetMetadata. With refresh set the cached copy is
// discarded first.
func (l *Library) MetadataJob(i int, refresh bool) (func(context.Context) (*domain.Metadata, error), error) {
	t, ok := l.Title(i)
	if !ok {
		return nil, fmt.Errorf("%w: title %d", domain.ErrNotFound, i)
	}
	source, dir, name := l.source, t.Path, t.Name
	return func(ctx context.Context) (*domain.Metadata, error) {
		if refresh {
			if err := source.Invalidate(dir); err != nil {
				return nil, err
			}
		}
		return source.TryQuery(ctx, dir, name, i)
	}, nil
}

// ResolveMetadata looks up metadata for title i without storing it
func (l *Library) ResolveMetadata(ctx context.Context, i int, refresh bool) (*domain.Metadata, error) {
	job, err := l.MetadataJob(i, refresh)
	if err != nil {
		return nil, err
	}
	return job(ctx)
}

// SetMetadata stores metadata on the title its ID routes to
func (l *Library) SetMetadata(data *domain.Metadata) error {
	t, ok := l.Title(data.ID)
	if !ok {
		return fmt.Errorf("%w: title %d", domain.ErrNotFound, data.ID)
	}
	t.Data = data
	return nil
}

// FetchMetadata resolves and stores metadata for a single title
func (l *Library) FetchMetadata(ctx context.Context, i int) error {
	data, err := l.ResolveMetadata(ctx, i, false)
	if err != nil {
		return err
	}
	return l.SetMetadata(data)
}

// RefreshMetadata discards the cached metadata of a title and fetches it again
func (l *Library) RefreshMetadata(ctx context.Context, i int) error {
	if t, ok := l.Title(i); ok {
		t.Data = nil
	}
	data, err := l.ResolveMetadata(ctx, i, true)
	if err != nil {
		return err
	}
	return l.SetMetadata(data)
}

// Root returns the scanned series path
func (l *Library) Root() string {
	return l.root
}

// Len returns the number of titles
func (l *Library) Len() int {
	return len(l.titles)
}

// Names returns the title names in order
func (l *Library) Names() []string {
	names := make([]string, len(l.titles))
	for i, t := range l.titles {
		names[i] = t.Name
	}
	return names
}

// Title returns the title at index i
func (l *Library) Title(i int) (*Title, bool) {
	if i < 0 || i >= len(l.titles) {
		return nil, false
	}
	return l.titles[i], true
}

// TitleName returns the name of the title at index i
func (l *Library) TitleName(i int) (string, bool) {
	t, ok := l.Title(i)
	if !ok {
		return "", false
	}
	return t.Name, true
}

// Episode returns episode e of title t. It reports false if either index
// is out of range or the title's episodes are not loaded.
func (l *Library) Episode(t, e int) (*Episode, bool) {
	title, ok := l.Title(t)
	if !ok {
		return nil, false
	}
	return title.Episode(e)
}

// EpisodeData returns the name of an episode and the seconds to show
// beside it in a listing.
func (l *Library) EpisodeData(t, e int) (string, float64, bool) {
	ep, ok := l.Episode(t, e)
	if !ok {
		return "", 0, false
	}
	return ep.Name, ep.Metadata.DisplaySeconds(), true
}

// LoadEpisodes loads the episodes of title i
func (l *Library) LoadEpisodes(ctx context.Context, i int, refresh bool) error {
	t, ok := l.Title(i)
	if !ok {
		return fmt.Errorf("%w: title %d", domain.ErrNotFound, i)
	}
	return t.LoadEpisodes(ctx, refresh)
}

// EpisodesJob returns a probe of the episodes of title i. The returned
// function touches no library state and may run on any goroutine; store
// its result with SetEpisodes.
func (l *Library) EpisodesJob(i int) (func(context.Context) ([]*Episode, error), error) {
	t, ok := l.Title(i)
	if !ok {
		return nil, fmt.Errorf("%w: title %d", domain.ErrNotFound, i)
	}
	return t.ProbeEpisodes, nil
}

// SetEpisodes stores probed episodes on title i. Progress is read again
// first, since marks and playback may have changed it while the probe ran.
func (l *Library) SetEpisodes(i int, episodes []*Episode) error {
	t, ok := l.Title(i)
	if !ok {
		return fmt.Errorf("%w: title %d", domain.ErrNotFound, i)
	}
	for _, ep := range episodes {
		if err := ep.Sync(); err != nil {
			l.logger.Warn("keeping probed progress", "episode", ep.Name, "error", err)
		}
	}
	t.SetEpisodes(episodes)
	return nil
}

// MarkEpisode toggles the watched state of an episode
func (l *Library) MarkEpisode(t, e int) error {
	ep, ok := l.Episode(t, e)
	if !ok {
		return fmt.Errorf("%w: episode %d of title %d", domain.ErrNotFound, e, t)
	}
	return ep.ToggleWatched()
}

// MarkPrevious sets the watched state of every episode of title t before e
func (l *Library) MarkPrevious(t, e int) error {
	title, ok := l.Title(t)
	if !ok {
		return fmt.Errorf("%w: title %d", domain.ErrNotFound, t)
	}
	return title.MarkUpTo(e)
}

// RunExternalProcess runs a platform command line and waits for it
func (l *Library) RunExternalProcess(ctx context.Context, command string) ([]byte, error) {
	return l.runner.RunCommand(ctx, command)
}

// RunPlayer launches the player with the given arguments and waits for it
func (l *Library) RunPlayer(ctx context.Context, args ...string) error {
	return l.player.Run(ctx, args...)
}

// Play runs the player for a file without touching library state, so it
// may be called from any goroutine. Use ReloadEpisode afterwards.
func (l *Library) Play(ctx context.Context, path string, startSeconds float64) error {
	return l.player.Play(ctx, path, startSeconds)
}

// ReloadEpisode re-reads the progress of an episode after playback
func (l *Library) ReloadEpisode(t, e int) error {
	ep, ok := l.Episode(t, e)
	if !ok {
		return fmt.Errorf("%w: episode %d of title %d", domain.ErrNotFound, e, t)
	}
	return ep.Reload()
}

// PlayEpisode plays an episode from where it was left, or from the start
// if it was watched, then reloads its progress.
func (l *Library) PlayEpisode(ctx context.Context, t, e int) error {
	ep, ok := l.Episode(t, e)
	if !ok {
		return fmt.Errorf("%w: episode %d of title %d", domain.ErrNotFound, e, t)
	}

	playErr := l.Play(ctx, ep.Path, ep.Metadata.StartOffset())
	if err := ep.Reload(); err != nil {
		return errors.Join(playErr, err)
	}
	return playErr
}
