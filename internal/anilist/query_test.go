package anilist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mmcdole/yama/internal/domain"
	"github.com/mmcdole/yama/internal/store"
)

const sampleResponse = `{"data":{"Media":{
  "id": 21,
  "title": {"romaji": "One Piece", "english": "One Piece", "native": "ワンピース"},
  "description": "Gold Roger was known as the <i>Pirate King</i>.<br><br>\nHis last words...<br>\n<br>Enjoy &amp; sail.",
  "genres": ["Action", "Adventure"],
  "bannerImage": "%BANNER%",
  "studios": {"edges": [
    {"isMain": false, "node": {"name": "Fuji TV"}},
    {"isMain": true, "node": {"name": "Toei Animation"}}
  ]}
}}}`

// fakeAniList serves the GraphQL endpoint at / and a banner at /banner.jpg
type fakeAniList struct {
	*httptest.Server
	queries atomic.Int32
	images  atomic.Int32
	status  int
}

func newFakeAniList(t *testing.T) *fakeAniList {
	t.Helper()
	f := &fakeAniList{status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/banner.jpg":
			f.images.Add(1)
			w.Write([]byte("jpegbytes"))
		case "/":
			f.queries.Add(1)
			if r.Method != http.MethodPost ||
				r.Header.Get("Content-Type") != "application/json" ||
				r.Header.Get("Accept") != "application/json" {
				t.Errorf("unexpected request %s %v", r.Method, r.Header)
			}
			var req graphQLRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Variables["search"] == "" {
				t.Errorf("bad request body: %v %+v", err, req)
			}
			w.WriteHeader(f.status)
			if f.status == http.StatusOK {
				w.Write([]byte(f.body()))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAniList) body() string {
	return replaceBanner(sampleResponse, f.URL+"/banner.jpg")
}

func replaceBanner(s, url string) string {
	return strings.ReplaceAll(s, "%BANNER%", url)
}

func newTestClient(f *fakeAniList, opts ...Option) *Client {
	return NewClient(append([]Option{WithBaseURL(f.URL + "/"), WithRateLimit(0)}, opts...)...)
}

func TestTryQueryFetchesOnMiss(t *testing.T) {
	f := newFakeAniList(t)
	c := newTestClient(f)
	titleDir := t.TempDir()

	m, err := c.TryQuery(context.Background(), titleDir, "One Piece", 7)
	if err != nil {
		t.Fatalf("TryQuery() error = %v", err)
	}

	if m.ID != 7 || m.MediaID != 21 {
		t.Errorf("ids = %d/%d, want 7/21", m.ID, m.MediaID)
	}
	if m.Studio != "Toei Animation" {
		t.Errorf("Studio = %q", m.Studio)
	}
	wantDesc := "Gold Roger was known as the Pirate King.\nHis last words...\nEnjoy & sail."
	if m.Description != wantDesc {
		t.Errorf("Description = %q\nwant          %q", m.Description, wantDesc)
	}
	if m.FromCache {
		t.Error("FromCache = true on a network fetch")
	}

	dataPath, thumbPath := Paths(titleDir)
	if m.ThumbnailPath != thumbPath {
		t.Errorf("ThumbnailPath = %q", m.ThumbnailPath)
	}
	if b, err := os.ReadFile(thumbPath); err != nil || string(b) != "jpegbytes" {
		t.Errorf("thumbnail = %q, %v", b, err)
	}
	if b, err := os.ReadFile(dataPath); err != nil || string(b) != f.body() {
		t.Errorf("data.json not the raw response: %v", err)
	}
	if f.queries.Load() != 1 || f.images.Load() != 1 {
		t.Errorf("requests = %d queries, %d images", f.queries.Load(), f.images.Load())
	}
}

func TestTryQueryCacheHit(t *testing.T) {
	f := newFakeAniList(t)
	c := newTestClient(f)
	titleDir := t.TempDir()

	dataPath, thumbPath := Paths(titleDir)
	os.MkdirAll(filepath.Dir(dataPath), 0755)
	if err := os.WriteFile(dataPath, []byte(replaceBanner(sampleResponse, "http://unused")), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(thumbPath, []byte("cached"), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := c.TryQuery(context.Background(), titleDir, "One Piece", 3)
	if err != nil {
		t.Fatalf("TryQuery() error = %v", err)
	}
	if f.queries.Load() != 0 || f.images.Load() != 0 {
		t.Fatalf("cache hit made %d queries, %d image requests", f.queries.Load(), f.images.Load())
	}
	if !m.FromCache || m.ID != 3 || m.English != "One Piece" || m.Studio != "Toei Animation" {
		t.Errorf("metadata = %+v", m)
	}
	if m.ThumbnailPath != thumbPath {
		t.Errorf("ThumbnailPath = %q", m.ThumbnailPath)
	}
}

func TestTryQueryRefetchesCorruptCache(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, manifest *store.ManifestStore, titleDir, dataPath string)
	}{
		{
			name: "unparseable",
			setup: func(t *testing.T, _ *store.ManifestStore, _, dataPath string) {
				os.WriteFile(dataPath, []byte("{not json"), 0644)
			},
		},
		{
			name: "checksum mismatch",
			setup: func(t *testing.T, manifest *store.ManifestStore, titleDir, dataPath string) {
				content := []byte(replaceBanner(sampleResponse, "http://unused"))
				os.WriteFile(dataPath, content, 0644)
				manifest.Put(titleDir, 21, []byte("something else"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeAniList(t)
			manifest, _ := store.NewManifestStore("", "")
			c := newTestClient(f, WithManifest(manifest))
			titleDir := t.TempDir()

			dataPath, thumbPath := Paths(titleDir)
			os.MkdirAll(filepath.Dir(dataPath), 0755)
			os.WriteFile(thumbPath, []byte("old"), 0644)
			tt.setup(t, manifest, titleDir, dataPath)

			m, err := c.TryQuery(context.Background(), titleDir, "One Piece", 0)
			if err != nil {
				t.Fatalf("TryQuery() error = %v", err)
			}
			if m.FromCache || f.queries.Load() != 1 {
				t.Errorf("expected a refetch, queries = %d", f.queries.Load())
			}
			entry, ok := manifest.Get(titleDir)
			data, _ := os.ReadFile(dataPath)
			if !ok || !entry.Valid(data) {
				t.Error("manifest not updated after refetch")
			}
		})
	}
}

func TestTryQueryErrors(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusInternalServerError, domain.ErrNetwork},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusTooManyRequests, domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := newFakeAniList(t)
			f.status = tt.status
			c := newTestClient(f)
			titleDir := t.TempDir()

			_, err := c.TryQuery(context.Background(), titleDir, "Missing", 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if IsCached(titleDir) {
				t.Error("failed fetch left a complete cache behind")
			}
		})
	}
}

func TestInvalidateRemovesArtifacts(t *testing.T) {
	f := newFakeAniList(t)
	c := newTestClient(f)
	titleDir := t.TempDir()

	if _, err := c.TryQuery(context.Background(), titleDir, "One Piece", 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(titleDir); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if IsCached(titleDir) {
		t.Error("artifacts still present after Invalidate()")
	}
	if _, err := c.TryQuery(context.Background(), titleDir, "One Piece", 0); err != nil {
		t.Fatal(err)
	}
	if f.queries.Load() != 2 {
		t.Errorf("queries = %d, want 2", f.queries.Load())
	}
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"<b>bold</b> and <i>italic</i>", "bold and italic"},
		{"one<br><br>two", "one\ntwo"},
		{"one<br>\n<br>two", "one\ntwo"},
		{"one<br />two", "one\ntwo"},
		{"  Tom &amp; Jerry  ", "Tom & Jerry"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanDescription(tt.in); got != tt.want {
			t.Errorf("cleanDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMainStudio(t *testing.T) {
	edge := func(name string, main bool) studioEdge {
		e := studioEdge{IsMain: main}
		e.Node.Name = name
		return e
	}

	if got := mainStudio([]studioEdge{edge("A", false), edge("B", true), edge("C", true)}); got != "B" {
		t.Errorf("mainStudio() = %q, want B", got)
	}
	if got := mainStudio([]studioEdge{edge("A", false)}); got != "" {
		t.Errorf("mainStudio() = %q, want empty", got)
	}
	if got := mainStudio(nil); got != "" {
		t.Errorf("mainStudio(nil) = %q", got)
	}
}
