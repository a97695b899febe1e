package service

import (
	"github.com/mmcdole/yama/internal/cache"
	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/library"
)

// Command is a request sent to the backend with Send
type Command interface {
	command()
}

// LoadEpisodes loads the episodes of a title. Refresh probes the files
// again even if they are already loaded.
type LoadEpisodes struct {
	Title   int
	Refresh bool
}

// WatchEpisode plays an episode and reloads its progress when the player exits
type WatchEpisode struct {
	Title   int
	Episode int
}

// MarkEpisode toggles the watched state of an episode
type MarkEpisode struct {
	Title   int
	Episode int
}

// MarkPrevious toggles every episode before Episode
type MarkPrevious struct {
	Title   int
	Episode int
}

// RefreshMetadata discards the cached metadata of a title and fetches it again
type RefreshMetadata struct {
	Title int
}

// Restart rescans from a new series path and saves it on success
type Restart struct {
	Root string
}

// Shutdown stops the backend
type Shutdown struct{}

func (LoadEpisodes) command()    {}
func (WatchEpisode) command()    {}
func (MarkEpisode) command()     {}
func (MarkPrevious) command()    {}
func (RefreshMetadata) command() {}
func (Restart) command()         {}
func (Shutdown) command()        {}

// Results posted back to the loop by workers. gen ties a result to the
// scan it was started from.
type episodesProbed struct {
	gen      int
	title    int
	episodes []*library.Episode
	err      error
}

type playbackFinished struct {
	gen     int
	title   int
	episode int
	err     error
}

type metadataResolved struct {
	gen   int
	title int
	data  *domain.Metadata
	err   error
}

func (episodesProbed) command()   {}
func (playbackFinished) command() {}
func (metadataResolved) command() {}

// Event is a notification read from Events
type Event interface {
	event()
}

// Ready carries the first snapshot after a successful scan
type Ready struct {
	Cache  cache.Cache
	Report library.FetchReport
}

// Recovery reports that the series path could not be scanned. The backend
// keeps running and waits for a Restart.
type Recovery struct {
	Err error
}

// EpisodesLoaded carries a title whose episodes are now loaded
type EpisodesLoaded struct {
	Title int
	Cache cache.TitleCache
}

// EpisodesUpdated carries episode rows whose state changed
type EpisodesUpdated struct {
	Title    int
	Episodes []cache.EpisodeCache
}

// TitleUpdated carries new details for a title
type TitleUpdated struct {
	Title int
	Meta  cache.MetaCache
}

// Error reports a failed command
type Error struct {
	Err error
}

// Exit is the last event before Events is closed
type Exit struct{}

func (Ready) event()           {}
func (Recovery) event()        {}
func (EpisodesLoaded) event()  {}
func (EpisodesUpdated) event() {}
func (TitleUpdated) event()    {}
func (Error) event()           {}
func (Exit) event()            {}
