package util

import (
	"strings"
	"testing"
)

func TestSlugifyBasics(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My First Canvas", "my-first-canvas"},
		{"  Spaces  everywhere  ", "spaces-everywhere"},
		{"Checkout fails on Safari!", "checkout-fails-on-safari"},
		{"UPPER_case & symbols", "upper-case-symbols"},
		{"---", "untitled"},
		{"", "untitled"},
		{"already-a-slug", "already-a-slug"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyDeterministic(t *testing.T) {
	first := Slugify("Mobile signup drop-off")
	second := Slugify("Mobile signup drop-off")
	if first != second {
		t.Fatalf("slug not stable: %q vs %q", first, second)
	}
}

func TestSlugSuffixKeepsBase(t *testing.T) {
	got := SlugSuffix("my-canvas")
	if !strings.HasPrefix(got, "my-canvas-") {
		t.Fatalf("expected suffix to keep base, got %q", got)
	}
	if len(got) != len("my-canvas-")+6 {
		t.Fatalf("expected 6 hex chars appended, got %q", got)
	}
}

func TestNewShareTokenLength(t *testing.T) {
	token := NewShareToken()
	if len(token) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(token))
	}
	if token == NewShareToken() {
		t.Fatalf("expected distinct tokens")
	}
}

func TestNewIDPrefix(t *testing.T) {
	id := NewID("bkl")
	if !strings.HasPrefix(id, "bkl_") {
		t.Fatalf("expected bkl_ prefix, got %q", id)
	}
	if NewID("") == NewID("") {
		t.Fatalf("expected distinct ids")
	}
}
