// Package service runs the library on a single goroutine and talks to the
// UI through commands and events.
//
// The backend goroutine is the only one that writes to the library.
// Episode probing, playback, and metadata refreshes run on worker
// goroutines that capture what they need up front and post their results
// back to the loop, which applies them and emits fresh snapshot values.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmcdole/yama/internal/cache"
	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/library"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

const (
	commandBuffer = 16
	eventBuffer   = 64
)

var (
	// ErrStopped is returned by Send after Run has returned
	ErrStopped = errors.New("backend stopped")
	// ErrBusy is reported when an episode is requested while another plays
	ErrBusy = errors.New("an episode is already playing")
)

// Presence mirrors playback outside the app, such as in Discord
type Presence interface {
	Idle() error
	Watching(title, episode string, remaining float64) error
	Close() error
}

// Backend owns a Library and serializes every change to it
type Backend struct {
	lib      *library.Library
	saveRoot func(root string) error
	presence Presence
	logger   *slog.Logger

	commands chan Command
	results  chan Command
	events   chan Event
	done     chan struct{}

	workers conc.WaitGroup

	// Loop state
	gen        int
	loading    map[int]bool
	refreshing map[int]bool
	playing    bool
}

// NewBackend creates a backend for lib. saveRoot persists a series path
// accepted through Restart and may be nil.
func NewBackend(lib *library.Library, saveRoot func(root string) error, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		lib:        lib,
		saveRoot:   saveRoot,
		logger:     logger,
		commands:   make(chan Command, commandBuffer),
		results:    make(chan Command, commandBuffer),
		events:     make(chan Event, eventBuffer),
		done:       make(chan struct{}),
		loading:    make(map[int]bool),
		refreshing: make(map[int]bool),
	}
}

// SetPresence publishes playback state to p. Call it before Run.
func (b *Backend) SetPresence(p Presence) {
	b.presence = p
}

// Send queues a command for the backend
func (b *Backend) Send(ctx context.Context, cmd Command) error {
	select {
	case <-b.done:
		return ErrStopped
	default:
	}

	select {
	case b.commands <- cmd:
		return nil
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the event stream. It is closed when Run returns.
func (b *Backend) Events() <-chan Event {
	return b.events
}

// Run scans root, fetches metadata, and then serves commands until
// Shutdown or until ctx is cancelled. Failed commands are reported as
// Error events and never stop the loop.
func (b *Backend) Run(ctx context.Context, root string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(b.done)
		cancel()
		b.workers.Wait()
		if b.presence != nil {
			b.presence.Close()
		}
		close(b.events)
	}()

	b.showIdle()
	b.load(ctx, root)

	for {
		var cmd Command
		select {
		case cmd = <-b.commands:
		case cmd = <-b.results:
		case <-ctx.Done():
			return ctx.Err()
		}

		if _, ok := cmd.(Shutdown); ok {
			b.logger.Info("backend shutting down")
			b.emit(ctx, Exit{})
			return nil
		}
		b.handle(ctx, cmd)
	}
}

func (b *Backend) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case LoadEpisodes:
		b.loadEpisodes(ctx, c)
	case WatchEpisode:
		b.watchEpisode(ctx, c)
	case MarkEpisode:
		err := b.lib.MarkEpisode(c.Title, c.Episode)
		b.emitRows(ctx, c.Title, c.Episode, c.Episode+1)
		b.report(ctx, err)
	case MarkPrevious:
		err := b.lib.MarkPrevious(c.Title, c.Episode)
		b.emitRows(ctx, c.Title, 0, c.Episode)
		b.report(ctx, err)
	case RefreshMetadata:
		b.refreshMetadata(ctx, c)
	case Restart:
		b.restart(ctx, c)
	case episodesProbed:
		b.episodesProbed(ctx, c)
	case playbackFinished:
		b.playbackFinished(ctx, c)
	case metadataResolved:
		b.metadataResolved(ctx, c)
	default:
		b.logger.Warn("unknown command", "type", fmt.Sprintf("%T", cmd))
	}
}

// load scans root and publishes a snapshot. On failure the previous
// titles are kept and Recovery is emitted.
func (b *Backend) load(ctx context.Context, root string) bool {
	if err := b.lib.Scan(root); err != nil {
		b.logger.Error("failed to scan series path", "root", root, "error", err)
		b.emit(ctx, Recovery{Err: err})
		return false
	}

	// Indexes from before the scan mean nothing now
	b.gen++
	clear(b.loading)
	clear(b.refreshing)

	report := b.lib.FetchAllMetadata(ctx)
	b.emit(ctx, Ready{Cache: cache.New(b.lib), Report: report})
	return true
}

func (b *Backend) restart(ctx context.Context, c Restart) {
	if !b.load(ctx, c.Root) || b.saveRoot == nil {
		return
	}
	if err := b.saveRoot(c.Root); err != nil {
		b.logger.Error("failed to save series path", "root", c.Root, "error", err)
		b.report(ctx, err)
	}
}

func (b *Backend) loadEpisodes(ctx context.Context, c LoadEpisodes) {
	if b.loading[c.Title] {
		b.logger.Debug("episodes already loading", "title", c.Title)
		return
	}

	title, ok := b.lib.Title(c.Title)
	if ok && title.EpisodesLoaded() && !c.Refresh {
		b.emit(ctx, EpisodesLoaded{Title: c.Title, Cache: cache.NewTitleCache(title)})
		return
	}

	job, err := b.lib.EpisodesJob(c.Title)
	if err != nil {
		b.report(ctx, err)
		return
	}

	b.loading[c.Title] = true
	gen := b.gen
	b.spawn(ctx, func(ctx context.Context) Command {
		episodes, err := job(ctx)
		return episodesProbed{gen: gen, title: c.Title, episodes: episodes, err: err}
	}, func(err error) Command {
		return episodesProbed{gen: gen, title: c.Title, err: err}
	})
}

func (b *Backend) episodesProbed(ctx context.Context, r episodesProbed) {
	if r.gen != b.gen {
		return
	}
	delete(b.loading, r.title)

	if r.err != nil {
		b.logger.Error("failed to load episodes", "title", r.title, "error", r.err)
		b.report(ctx, r.err)
		return
	}
	if err := b.lib.SetEpisodes(r.title, r.episodes); err != nil {
		b.report(ctx, err)
		return
	}

	title, _ := b.lib.Title(r.title)
	b.emit(ctx, EpisodesLoaded{Title: r.title, Cache: cache.NewTitleCache(title)})
}

func (b *Backend) watchEpisode(ctx context.Context, c WatchEpisode) {
	if b.playing {
		b.report(ctx, ErrBusy)
		return
	}

	ep, ok := b.lib.Episode(c.Title, c.Episode)
	if !ok {
		b.report(ctx, fmt.Errorf("%w: episode %d of title %d", domain.ErrNotFound, c.Episode, c.Title))
		return
	}

	path, start := ep.Path, ep.Metadata.StartOffset()
	b.logger.Info("starting playback", "episode", ep.Name, "start", start)

	b.playing = true
	if b.presence != nil {
		title, _ := b.lib.Title(c.Title)
		if err := b.presence.Watching(title.DisplayTitle(), ep.Name, ep.Metadata.Duration-start); err != nil {
			b.logger.Warn("failed to update presence", "error", err)
		}
	}
	gen := b.gen
	b.spawn(ctx, func(ctx context.Context) Command {
		err := b.lib.Play(ctx, path, start)
		return playbackFinished{gen: gen, title: c.Title, episode: c.Episode, err: err}
	}, func(err error) Command {
		return playbackFinished{gen: gen, title: c.Title, episode: c.Episode, err: err}
	})
}

func (b *Backend) playbackFinished(ctx context.Context, r playbackFinished) {
	b.playing = false
	b.showIdle()
	if r.gen != b.gen {
		return
	}

	if r.err != nil {
		b.logger.Error("player failed", "title", r.title, "episode", r.episode, "error", r.err)
		b.report(ctx, r.err)
	}

	// The player may have saved progress even if it exited badly
	if err := b.lib.ReloadEpisode(r.title, r.episode); err != nil {
		b.report(ctx, err)
		return
	}
	b.emitRows(ctx, r.title, r.episode, r.episode+1)
}

func (b *Backend) refreshMetadata(ctx context.Context, c RefreshMetadata) {
	if b.refreshing[c.Title] {
		return
	}

	job, err := b.lib.MetadataJob(c.Title, true)
	if err != nil {
		b.report(ctx, err)
		return
	}

	b.refreshing[c.Title] = true
	gen := b.gen
	b.spawn(ctx, func(ctx context.Context) Command {
		data, err := job(ctx)
		return metadataResolved{gen: gen, title: c.Title, data: data, err: err}
	}, func(err error) Command {
		return metadataResolved{gen: gen, title: c.Title, err: err}
	})
}

func (b *Backend) metadataResolved(ctx context.Context, r metadataResolved) {
	if r.gen != b.gen {
		return
	}
	delete(b.refreshing, r.title)

	if r.err == nil && r.data == nil {
		r.err = errors.New("empty result")
	}
	if r.err != nil {
		b.logger.Error("failed to refresh metadata", "title", r.title, "error", r.err)
		b.report(ctx, r.err)
		return
	}
	if err := b.lib.SetMetadata(r.data); err != nil {
		b.report(ctx, err)
		return
	}

	title, _ := b.lib.Title(r.data.ID)
	b.emit(ctx, TitleUpdated{Title: r.data.ID, Meta: cache.NewMetaCache(title)})
}

func (b *Backend) showIdle() {
	if b.presence == nil {
		return
	}
	if err := b.presence.Idle(); err != nil {
		b.logger.Warn("failed to update presence", "error", err)
	}
}

// spawn runs job on a worker and posts its result to the loop. A panic
// in job is turned into the message built by failed.
func (b *Backend) spawn(ctx context.Context, job func(context.Context) Command, failed func(error) Command) {
	b.workers.Go(func() {
		var msg Command
		var pc panics.Catcher
		pc.Try(func() { msg = job(ctx) })
		if r := pc.Recovered(); r != nil {
			b.logger.Error("worker panicked", "error", r.AsError())
			msg = failed(r.AsError())
		}

		select {
		case b.results <- msg:
		case <-ctx.Done():
		}
	})
}

// emitRows publishes episodes [from, to) of title t
func (b *Backend) emitRows(ctx context.Context, t, from, to int) {
	title, ok := b.lib.Title(t)
	if !ok {
		return
	}
	episodes := title.Episodes()
	from, to = max(from, 0), min(to, len(episodes))
	if from >= to {
		return
	}

	rows := make([]cache.EpisodeCache, 0, to-from)
	for _, ep := range episodes[from:to] {
		rows = append(rows, cache.NewEpisodeCache(ep))
	}
	b.emit(ctx, EpisodesUpdated{Title: t, Episodes: rows})
}

func (b *Backend) report(ctx context.Context, err error) {
	if err != nil {
		b.emit(ctx, Error{Err: err})
	}
}

func (b *Backend) emit(ctx context.Context, ev Event) {
	select {
	case b.events <- ev:
	case <-ctx.Done():
	}
}
