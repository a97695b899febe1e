package anilist

import (
	"html"
	"regexp"
	"strings"
)

var (
	breakRun = regexp.MustCompile(`(?i)(<br\s*/?>[ \t]*\r?\n?)+`)
	anyTag   = regexp.MustCompile(`<[^>]*>`)
)

// cleanDescription turns AniList's HTML description into plain text.
// Runs of line breaks collapse into a single newline.
func cleanDescription(s string) string {
	s = breakRun.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(s))
}

// mainStudio returns the first studio flagged as main, or ""
func mainStudio(edges []studioEdge) string {
	for _, e := range edges {
		if e.IsMain {
			return e.Node.Name
		}
	}
	return ""
}
