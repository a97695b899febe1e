package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for library operations
var (
	// ErrConfig indicates the series root is missing or invalid
	ErrConfig = errors.New("series path is not configured")

	// ErrIO indicates a filesystem read or write failed
	ErrIO = errors.New("filesystem error")

	// ErrNetwork indicates the metadata service could not be reached
	ErrNetwork = errors.New("metadata service is unreachable")

	// ErrParse indicates a malformed response or progress record
	ErrParse = errors.New("malformed data")

	// ErrInvalidMedia indicates a file is not a playable video
	ErrInvalidMedia = errors.New("not a valid video file")

	// ErrExternalTool indicates a subprocess exited with a failure
	ErrExternalTool = errors.New("external tool failed")

	// ErrCacheCorrupt indicates cached title metadata could not be used
	ErrCacheCorrupt = errors.New("cached metadata is corrupt")

	// ErrNotFound indicates a title or episode index is out of range
	ErrNotFound = errors.New("item not found")
)

// ToolError carries the captured stderr of a failed subprocess.
type ToolError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is reports every ToolError as ErrExternalTool so callers can classify
// it without caring about the underlying exec error.
func (e *ToolError) Is(target error) bool { return target == ErrExternalTool }
