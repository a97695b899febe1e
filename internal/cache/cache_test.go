package cache

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/library"
)

type stubTools struct{}

func (stubTools) Duration(ctx context.Context, path string) (float64, error) { return 600, nil }
func (stubTools) Thumbnail(ctx context.Context, src, dst string) error {
	return os.WriteFile(dst, []byte("frame"), 0644)
}

type stubSource struct{}

func (stubSource) TryQuery(ctx context.Context, dir, name string, id int) (*domain.Metadata, error) {
	if name == "Kimetsu" {
		return &domain.Metadata{ID: id, English: "Demon Slayer", Description: "Swords.", ThumbnailPath: "/banner.jpg"}, nil
	}
	return nil, domain.ErrNotFound
}

func (stubSource) Invalidate(dir string) error { return nil }

func newLibrary(t *testing.T) *library.Library {
	t.Helper()
	root := t.TempDir()
	for _, f := range []string{"Kimetsu/ep1.mkv", "Kimetsu/ep2.mkv", "Mushishi/ep1.mkv"} {
		p := filepath.Join(root, filepath.FromSlash(f))
		os.MkdirAll(filepath.Dir(p), 0755)
		if err := os.WriteFile(p, []byte("video"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	lib := library.New(library.Deps{Source: stubSource{}, Tools: stubTools{}})
	if err := lib.Scan(root); err != nil {
		t.Fatal(err)
	}
	lib.FetchAllMetadata(context.Background())
	return lib
}

func TestNewSnapshot(t *testing.T) {
	lib := newLibrary(t)
	c := New(lib)

	if !reflect.DeepEqual(c.Names(), []string{"Kimetsu", "Mushishi"}) {
		t.Fatalf("Names() = %v", c.Names())
	}

	tc, ok := c.Title(0)
	if !ok || tc.Loaded() {
		t.Fatalf("Title(0) = %+v, %v; episodes should not be loaded", tc, ok)
	}
	if tc.Meta.Title != "Demon Slayer" || tc.Meta.Thumbnail != "/banner.jpg" {
		t.Errorf("meta = %+v", tc.Meta)
	}

	tc, _ = c.Title(1)
	if tc.Meta.Description != domain.NoDescription || tc.Meta.Title != "Mushishi" {
		t.Errorf("meta without data = %+v", tc.Meta)
	}

	if _, ok := c.Title(2); ok {
		t.Error("Title(2) ok")
	}
	if _, ok := c.Episode(0, 0); ok {
		t.Error("Episode() ok before load")
	}
}

func TestTargetedUpdates(t *testing.T) {
	lib := newLibrary(t)
	c := New(lib)
	untouched, _ := c.Title(1)

	if err := lib.LoadEpisodes(context.Background(), 0, false); err != nil {
		t.Fatal(err)
	}
	title, _ := lib.Title(0)
	if !c.SetTitle(0, NewTitleCache(title)) {
		t.Fatal("SetTitle() = false")
	}

	tc, _ := c.Title(0)
	if !tc.Loaded() || tc.Len() != 2 || !reflect.DeepEqual(tc.EpisodeNames(), []string{"ep1.mkv", "ep2.mkv"}) {
		t.Fatalf("title cache = %+v", tc)
	}
	if other, _ := c.Title(1); !reflect.DeepEqual(other, untouched) {
		t.Error("SetTitle touched another title")
	}

	lib.MarkEpisode(0, 1)
	ep, _ := lib.Episode(0, 1)
	if !c.SetEpisode(0, NewEpisodeCache(ep)) {
		t.Fatal("SetEpisode() = false")
	}
	got, _ := c.Episode(0, 1)
	if !got.Watched || got.Number != 2 || got.Seconds != 600 {
		t.Errorf("episode cache = %+v", got)
	}
	if first, _ := c.Episode(0, 0); first.Watched {
		t.Error("SetEpisode touched another episode")
	}

	if c.SetEpisode(1, NewEpisodeCache(ep)) {
		t.Error("SetEpisode() on an unloaded title should fail")
	}
	if c.SetTitle(5, TitleCache{}) {
		t.Error("SetTitle(5) should fail")
	}

	if !c.SetTitleMeta(0, MetaCache{Title: "Renamed"}) {
		t.Fatal("SetTitleMeta() = false")
	}
	if tc, _ := c.Title(0); tc.Meta.Title != "Renamed" || tc.Len() != 2 {
		t.Errorf("SetTitleMeta() dropped episodes or meta: %+v", tc)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	lib := newLibrary(t)
	lib.LoadEpisodes(context.Background(), 0, false)
	title, _ := lib.Title(0)

	c := New(lib)
	c.SetTitle(0, NewTitleCache(title))
	snapshot := c.Clone()

	c.SetTitle(1, TitleCache{Meta: MetaCache{Title: "changed"}})
	c.SetEpisode(0, EpisodeCache{Number: 1, Name: "changed"})

	if tc, _ := snapshot.Title(1); tc.Meta.Title == "changed" {
		t.Error("clone shares the title slice")
	}
	if ep, _ := snapshot.Episode(0, 0); ep.Name == "changed" {
		t.Error("clone shares episode rows")
	}
}

func TestFilter(t *testing.T) {
	c := New(newLibrary(t))

	if got := c.Filter(""); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Filter(\"\") = %v", got)
	}
	if got := c.Filter("mush"); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Filter(mush) = %v", got)
	}
	if got := c.Filter("demon"); !reflect.DeepEqual(got, []int{0}) {
		t.Errorf("Filter(demon) matches display titles: %v", got)
	}
	if got := c.Filter("zzz"); len(got) != 0 {
		t.Errorf("Filter(zzz) = %v", got)
	}
}
