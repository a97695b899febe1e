// Package cache holds the read-only view of the library that the UI renders.
//
// Values are built by the goroutine that owns the library and handed over
// by value. Strings and name lists are shared and never mutated; slices
// that can change are copied by Clone before they cross goroutines.
package cache

import (
	"strings"

	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/library"
	"github.com/sahilm/fuzzy"
)

// MetaCache is what the details pane shows for a title or an episode
type MetaCache struct {
	Title       string
	Thumbnail   string // Empty if there is no image
	Description string
}

// NewMetaCache captures a Meta value
func NewMetaCache(m domain.Meta) MetaCache {
	return MetaCache{
		Title:       m.DisplayTitle(),
		Thumbnail:   m.Thumbnail(),
		Description: m.Description(),
	}
}

// EpisodeCache is one row of an episode listing
type EpisodeCache struct {
	Number  int
	Name    string
	Watched bool
	Started bool    // Some of it has been played
	Seconds float64 // Duration if finished, otherwise time remaining
	Meta    MetaCache
}

// NewEpisodeCache captures an episode
func NewEpisodeCache(ep *library.Episode) EpisodeCache {
	return EpisodeCache{
		Number:  ep.Number,
		Name:    ep.Name,
		Watched: ep.Metadata.Watched,
		Started: ep.Metadata.Current > 0,
		Seconds: ep.Metadata.DisplaySeconds(),
		Meta:    NewMetaCache(ep),
	}
}

// TitleCache is a title's details and, once loaded, its episodes
type TitleCache struct {
	Meta         MetaCache
	episodeNames []string       // shared with the library, read-only
	episodes     []EpisodeCache // nil until episodes are loaded
}

// NewTitleMeta captures a title without its episodes
func NewTitleMeta(t *library.Title) TitleCache {
	return TitleCache{Meta: NewMetaCache(t)}
}

// NewTitleCache captures a title whose episodes have been loaded
func NewTitleCache(t *library.Title) TitleCache {
	tc := NewTitleMeta(t)
	episodes := t.Episodes()
	tc.episodeNames = t.EpisodeNames()
	tc.episodes = make([]EpisodeCache, len(episodes))
	for i, ep := range episodes {
		tc.episodes[i] = NewEpisodeCache(ep)
	}
	return tc
}

// Loaded reports whether episodes are present
func (tc TitleCache) Loaded() bool {
	return tc.episodes != nil
}

// Len returns the number of episodes
func (tc TitleCache) Len() int {
	return len(tc.episodes)
}

// EpisodeNames returns the episode names. The slice must not be modified.
func (tc TitleCache) EpisodeNames() []string {
	return tc.episodeNames
}

// Episode returns the episode at position i
func (tc TitleCache) Episode(i int) (EpisodeCache, bool) {
	if i < 0 || i >= len(tc.episodes) {
		return EpisodeCache{}, false
	}
	return tc.episodes[i], true
}

// Clone copies the episode rows so the result can be handed to another goroutine
func (tc TitleCache) Clone() TitleCache {
	if tc.episodes != nil {
		tc.episodes = append(make([]EpisodeCache, 0, len(tc.episodes)), tc.episodes...)
	}
	return tc
}

// Cache is the UI's snapshot of the whole library
type Cache struct {
	names  []string // shared, read-only
	titles []TitleCache
}

// New builds a snapshot with every title's details and no episodes
func New(lib *library.Library) Cache {
	c := Cache{
		names:  lib.Names(),
		titles: make([]TitleCache, lib.Len()),
	}
	for i := range c.titles {
		if t, ok := lib.Title(i); ok {
			c.titles[i] = NewTitleMeta(t)
		}
	}
	return c
}

// Len returns the number of titles
func (c Cache) Len() int {
	return len(c.titles)
}

// Names returns the title names in library order. The slice must not be modified.
func (c Cache) Names() []string {
	return c.names
}

// TitleName returns the name of title i
func (c Cache) TitleName(i int) (string, bool) {
	if i < 0 || i >= len(c.names) {
		return "", false
	}
	return c.names[i], true
}

// Title returns the cached title i
func (c Cache) Title(i int) (TitleCache, bool) {
	if i < 0 || i >= len(c.titles) {
		return TitleCache{}, false
	}
	return c.titles[i], true
}

// Episode returns episode e of title t
func (c Cache) Episode(t, e int) (EpisodeCache, bool) {
	tc, ok := c.Title(t)
	if !ok {
		return EpisodeCache{}, false
	}
	return tc.Episode(e)
}

// SetTitle replaces title i. It reports false if i is out of range.
func (c *Cache) SetTitle(i int, tc TitleCache) bool {
	if i < 0 || i >= len(c.titles) {
		return false
	}
	c.titles[i] = tc
	return true
}

// SetTitleMeta replaces the details of title i and keeps its episodes
func (c *Cache) SetTitleMeta(i int, m MetaCache) bool {
	if i < 0 || i >= len(c.titles) {
		return false
	}
	c.titles[i].Meta = m
	return true
}

// SetEpisode replaces the row of ec within title t, located by ec.Number.
// It reports false if the title is not loaded or the number is out of range.
func (c *Cache) SetEpisode(t int, ec EpisodeCache) bool {
	if t < 0 || t >= len(c.titles) {
		return false
	}
	episodes := c.titles[t].episodes
	i := ec.Number - 1
	if i < 0 || i >= len(episodes) {
		return false
	}
	episodes[i] = ec
	return true
}

// Clone returns a snapshot that shares no mutable state with c
func (c Cache) Clone() Cache {
	titles := make([]TitleCache, len(c.titles))
	for i, tc := range c.titles {
		titles[i] = tc.Clone()
	}
	return Cache{names: c.names, titles: titles}
}

// titleSource lets sahilm/fuzzy search names and display titles together
type titleSource struct {
	lower []string
}

func (s titleSource) String(i int) string { return s.lower[i] }
func (s titleSource) Len() int            { return len(s.lower) }

// Filter returns the indexes of titles matching query, best match first.
// An empty query matches every title in order.
func (c Cache) Filter(query string) []int {
	if strings.TrimSpace(query) == "" {
		all := make([]int, len(c.titles))
		for i := range all {
			all[i] = i
		}
		return all
	}

	src := titleSource{lower: make([]string, len(c.titles))}
	for i, tc := range c.titles {
		text := c.names[i]
		if tc.Meta.Title != "" && tc.Meta.Title != text {
			text += " " + tc.Meta.Title
		}
		src.lower[i] = strings.ToLower(text)
	}

	matches := fuzzy.FindFrom(strings.ToLower(query), src)
	out := make([]int, len(matches))
	for i, m := range matches {
		out[i] = m.Index
	}
	return out
}
