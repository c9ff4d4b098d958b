package tags

import (
	"reflect"
	"testing"
)

func TestParseTrimsAndDropsEmpty(t *testing.T) {
	got := Parse(" ux , perf,,  onboarding ,")
	want := []string{"ux", "perf", "onboarding"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %v, want %v", got, want)
	}
}

func TestParseKeepsDuplicates(t *testing.T) {
	got := Parse("perf, perf")
	if len(got) != 2 || got[0] != "perf" || got[1] != "perf" {
		t.Fatalf("Parse = %v, want [perf perf]", got)
	}
}

func TestParseEmpty(t *testing.T) {
	if got := Parse(""); len(got) != 0 {
		t.Fatalf("Parse(\"\") = %v, want empty", got)
	}
	if got := Parse(" , ,"); len(got) != 0 {
		t.Fatalf("Parse of separators = %v, want empty", got)
	}
}

func TestColorDeterministic(t *testing.T) {
	first := Color("checkout")
	for i := 0; i < 5; i++ {
		if Color("checkout") != first {
			t.Fatalf("color not stable for same tag")
		}
	}
}

func TestColorWithinPalette(t *testing.T) {
	for _, tag := range []string{"ux", "perf", "billing", "온보딩", "a", ""} {
		got := Color(tag)
		found := false
		for _, c := range Palette {
			if c == got {
				found = true
			}
		}
		if !found {
			t.Fatalf("Color(%q) = %q not in palette", tag, got)
		}
	}
}
