// Package fuse merges the two geocoded listing datasets into one
// deduplicated set keyed by normalized community name.
package fuse

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Punctuation commonly seen in portal listing names. Stripped from identity
// keys so "万科·城" and "万科城" collide; the same rule is applied to both
// sources.
var punctuation = regexp.MustCompile("[·•．.。,，()（）\\[\\]【】<>《》\"'“”‘’\\-—–_/\\\\|:：;；!！?？*＆&]+")

var whitespace = regexp.MustCompile(`\s+`)

// Key builds the cross-source identity key for a listing name: full-width
// characters folded to half-width, case-folded, punctuation stripped, and
// whitespace trimmed and collapsed.
func Key(name string) string {
	k := width.Narrow.String(name)
	k = strings.ToLower(k)
	k = punctuation.ReplaceAllString(k, "")
	k = whitespace.ReplaceAllString(k, " ")
	return strings.TrimSpace(k)
}
