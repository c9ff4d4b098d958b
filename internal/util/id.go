package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

// NewShareToken returns an unguessable token for public backlog links.
func NewShareToken() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// Slugify derives a URL-safe slug from a human-readable name: lowercase,
// non-alphanumeric runs collapsed to single hyphens, leading/trailing
// hyphens trimmed. Names with no usable characters slug to "untitled".
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// SlugSuffix appends a short random suffix, used when a derived slug
// collides with an existing row.
func SlugSuffix(slug string) string {
	bytes := make([]byte, 3)
	_, _ = rand.Read(bytes)
	return slug + "-" + hex.EncodeToString(bytes)
}
