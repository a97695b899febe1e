package library

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mmcdole/yama/internal/domain"
)

// ReadProgress loads the watch progress record at path
func ReadProgress(path string) (domain.VideoMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.VideoMetadata{}, fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	defer f.Close()

	v, err := domain.ParseProgress(f)
	if err != nil {
		return domain.VideoMetadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// WriteProgress replaces the record at path with v
func WriteProgress(path string, v domain.VideoMetadata) error {
	var buf bytes.Buffer
	if err := domain.WriteProgress(&buf, v); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: %v", domain.ErrIO, err)
	}
	return nil
}

// WriteDefaultProgress writes a fresh, unwatched record for a video of the given duration
func WriteDefaultProgress(path string, duration float64) error {
	return WriteProgress(path, domain.VideoMetadata{Duration: duration})
}
