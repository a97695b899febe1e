package media

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// IsVideo sniffs the file header and reports whether it is a video container.
func IsVideo(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for ; mt != nil; mt = mt.Parent() {
		if strings.HasPrefix(mt.String(), "video/") {
			return true
		}
	}
	return false
}
