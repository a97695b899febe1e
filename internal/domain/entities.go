package domain

import (
	"fmt"
	"strings"
)

// NoDescription is shown for titles and episodes without metadata
const NoDescription = "No description found..."

// Metadata represents the catalog information for one title
type Metadata struct {
	ID            int      `json:"-"`        // Index of the title this result belongs to
	MediaID       int      `json:"media_id"` // Catalog identifier
	Romaji        string   `json:"romaji"`
	English       string   `json:"english"`
	Native        string   `json:"native"`
	Description   string   `json:"description"` // Markup already stripped
	Genres        []string `json:"genres"`
	Studio        string   `json:"studio"`    // Main studio, empty if none is flagged
	ThumbnailPath string   `json:"thumbnail"` // Local banner image
	FromCache     bool     `json:"-"`         // true if loaded without a network call
}

// DisplayTitle returns the best available title, falling back to name.
func (m *Metadata) DisplayTitle(name string) string {
	if m == nil {
		return name
	}
	switch {
	case m.English != "":
		return m.English
	case m.Romaji != "":
		return m.Romaji
	default:
		return name
	}
}

// Summary formats description and genres for the details pane
func (m *Metadata) Summary() string {
	return fmt.Sprintf("Description: %s\n\nGenres: %s",
		strings.TrimSpace(m.Description), strings.Join(m.Genres, ", "))
}

// FormatTime formats seconds as mm:ss
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
