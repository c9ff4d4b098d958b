// Package tags handles the denormalized comma-separated tag field used on
// backlog items.
package tags

import "strings"

// Palette names the display colors a tag can map to. Order matters: the
// index a tag hashes to must stay stable across releases.
var Palette = []string{
	"blue",
	"green",
	"yellow",
	"purple",
	"pink",
	"indigo",
	"red",
	"orange",
}

// Parse splits a comma-separated tag string into trimmed, non-empty tokens.
// Duplicates are preserved; callers that need a set count them.
func Parse(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.TrimSpace(part)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Color returns the palette color for a tag. Same hash as the web client
// uses, so the same tag always lands on the same color everywhere.
func Color(tag string) string {
	var hash int32
	for _, r := range tag {
		hash = r + ((hash << 5) - hash)
	}
	if hash < 0 {
		hash = -hash
	}
	return Palette[int(hash)%len(Palette)]
}
