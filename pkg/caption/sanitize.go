package caption

import (
	"regexp"
	"strings"
)

var (
	headerMarkers = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	whitespace    = regexp.MustCompile(`\s+`)

	// Single underscores are left alone: interview questions quote
	// snake_case identifiers far more often than _emphasis_.
	markerRepl = strings.NewReplacer("**", "", "__", "", "*", "", "`", "")
)

// Sanitize strips markdown emphasis, header, and inline-code markers and
// collapses whitespace. Sanitizing already-clean text is a no-op.
func Sanitize(text string) string {
	s := headerMarkers.ReplaceAllString(text, "")
	s = markerRepl.Replace(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
