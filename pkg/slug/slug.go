// Package slug derives URL-safe identifiers from entry titles.
package slug

import (
	"regexp"
	"strings"
)

// nonWord matches a maximal run of characters that are not letters, digits or underscore.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Generate lowercases title and replaces every run of non-word characters with a single
// hyphen. Hyphens left at either end are trimmed, so a title without word characters
// yields the empty string.
func Generate(title string) string {
	s := nonWord.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(s, "-")
}

// Valid reports whether s is non-empty and already in the form Generate produces.
func Valid(s string) bool {
	return s != "" && Generate(s) == s
}
