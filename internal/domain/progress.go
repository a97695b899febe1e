package domain

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// minStartedSeconds is the position below which an episode counts as not started.
const minStartedSeconds = 1.0

// VideoMetadata is the watch progress of a single episode
type VideoMetadata struct {
	Duration  float64 // Total length in seconds
	Current   float64 // Last playback position in seconds
	Remaining float64 // Seconds left at the last stop
	Watched   bool
}

// ToggleWatched flips the watched flag. A watched episode is positioned
// at its end, an unwatched one at its start.
func (v *VideoMetadata) ToggleWatched() {
	v.Watched = !v.Watched
	if v.Watched {
		v.Current = v.Duration
	} else {
		v.Current = 0
	}
}

// ResumePoint is the position the UI shows as progress.
func (v VideoMetadata) ResumePoint() float64 {
	if v.Watched {
		return v.Duration
	}
	return v.Current
}

// StartOffset is where playback starts. Watched episodes restart from zero.
func (v VideoMetadata) StartOffset() float64 {
	if v.Watched {
		return 0
	}
	return v.Current
}

// DisplaySeconds is the time shown next to an episode in listings:
// the full duration when finished, otherwise the time remaining.
func (v VideoMetadata) DisplaySeconds() float64 {
	if v.Watched || v.Remaining == 0 {
		return v.Duration
	}
	return v.Remaining
}

// Description formats the progress for the details pane
func (v VideoMetadata) Description() string {
	status := "No"
	if v.Watched {
		status = "Yes"
	}
	return fmt.Sprintf("Duration: %s\nCurrent: %s\nRemaining: %s\nWatched: %s",
		FormatTime(v.Duration), FormatTime(v.Current), FormatTime(v.Remaining), status)
}

// ParseProgress reads a progress record. Lines are "Key: value"; unknown
// keys and blank lines are ignored, missing keys keep their zero value.
func ParseProgress(r io.Reader) (VideoMetadata, error) {
	var v VideoMetadata

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		var err error
		switch strings.TrimSpace(key) {
		case "Duration":
			v.Duration, err = strconv.ParseFloat(value, 64)
		case "Current":
			v.Current, err = strconv.ParseFloat(value, 64)
		case "Remaining":
			v.Remaining, err = strconv.ParseFloat(value, 64)
		case "Status":
			v.Watched, err = strconv.ParseBool(value)
		}
		if err != nil {
			return VideoMetadata{}, fmt.Errorf("%w: progress field %q: %v", ErrParse, key, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return VideoMetadata{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	if v.Current < minStartedSeconds {
		v.Current = 0
	}
	return v, nil
}

// WriteProgress writes v in the format ParseProgress reads.
func WriteProgress(w io.Writer, v VideoMetadata) error {
	_, err := fmt.Fprintf(w, "Duration: %s\nCurrent: %s\nRemaining: %s\nStatus: %t",
		formatSeconds(v.Duration), formatSeconds(v.Current), formatSeconds(v.Remaining), v.Watched)
	return err
}

func formatSeconds(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
