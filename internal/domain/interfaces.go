package domain

// MetaKind identifies which entity a Meta value describes
type MetaKind int

const (
	MetaTitle MetaKind = iota
	MetaEpisode
)

// String returns a human-readable name
func (k MetaKind) String() string {
	switch k {
	case MetaTitle:
		return "title"
	case MetaEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// Meta is implemented by anything shown in the details pane.
// Titles and episodes both provide a thumbnail and a description.
type Meta interface {
	// Thumbnail returns the local image path, empty if there is none
	Thumbnail() string

	// Description returns the text for the details pane
	Description() string

	// DisplayTitle returns the heading for the details pane
	DisplayTitle() string

	// Kind reports whether this is a title or an episode
	Kind() MetaKind
}
