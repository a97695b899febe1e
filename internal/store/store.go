package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// FormatVersion is bumped whenever the cached data.json layout changes.
// Entries written under another version are treated as stale.
const FormatVersion = 1

// Bucket names
var (
	bucketTitles = []byte("titles")
)

// Entry records what was written to a title's metadata cache
type Entry struct {
	Version   int       `json:"version"`
	Checksum  string    `json:"checksum"` // sha256 of data.json
	MediaID   int       `json:"media_id"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Valid reports whether data matches this entry
func (e Entry) Valid(data []byte) bool {
	return e.Version == FormatVersion && e.Checksum == Checksum(data)
}

// ManifestStore tracks cached title metadata using BoltDB.
type ManifestStore struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string][]byte
}

// NewManifestStore opens the manifest for one series root. An empty
// baseCacheDir gives a memory-only store.
func NewManifestStore(baseCacheDir, seriesRoot string) (*ManifestStore, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &ManifestStore{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if seriesRoot != "" {
		dir = filepath.Join(baseCacheDir, hashRoot(seriesRoot))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "yama.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTitles)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ManifestStore{db: db, cache: make(map[string][]byte)}, nil
}

func hashRoot(root string) string {
	normalized := strings.TrimRight(filepath.Clean(root), string(filepath.Separator))
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:8])
}

// Checksum returns the hex sha256 of data
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *ManifestStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *ManifestStore) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *ManifestStore) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	s.cache[cacheKey] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil // Memory-only mode
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		return b.Put([]byte(key), data)
	})
}

func (s *ManifestStore) delete(bucket []byte, key string) {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b != nil {
			b.Delete([]byte(key))
		}
		return nil
	})
}

// === Titles (key: title directory) ===

// Get returns the manifest entry for a title directory
func (s *ManifestStore) Get(titleDir string) (Entry, bool) {
	var e Entry
	ok := s.get(bucketTitles, titleDir, &e)
	return e, ok
}

// Put records that data was written for a title directory
func (s *ManifestStore) Put(titleDir string, mediaID int, data []byte) error {
	return s.set(bucketTitles, titleDir, Entry{
		Version:   FormatVersion,
		Checksum:  Checksum(data),
		MediaID:   mediaID,
		FetchedAt: time.Now().UTC(),
	})
}

// Invalidate forgets a title directory
func (s *ManifestStore) Invalidate(titleDir string) {
	s.delete(bucketTitles, titleDir)
}
