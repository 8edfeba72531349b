package physical

import (
	"strings"
	"testing"
)

func TestJoinPath(t *testing.T) {
	if got := JoinPath("", "siteConfig"); got != "siteConfig" {
		t.Errorf("JoinPath root = %q", got)
	}
	if got := JoinPath("siteConfig", "hero"); got != "siteConfig/hero" {
		t.Errorf("JoinPath = %q", got)
	}
	if got := JoinPath("files/logo_png", "abc"); got != "files/logo_png/abc" {
		t.Errorf("JoinPath nested = %q", got)
	}
}

func TestChildSegment(t *testing.T) {
	tests := []struct {
		prefix, full, want string
	}{
		{"", "siteConfig", "siteConfig"},
		{"", "siteConfig/hero", "siteConfig"},
		{"siteConfig", "siteConfig/hero", "hero"},
		{"siteConfig", "siteConfig/hero/title", "hero"},
		{"siteConfig", "siteConfig", ""},
		{"siteConfig", "siteConfigX/hero", ""},
		{"siteConfig", "messages/abc", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := ChildSegment(tt.prefix, tt.full); got != tt.want {
			t.Errorf("ChildSegment(%q, %q) = %q, want %q", tt.prefix, tt.full, got, tt.want)
		}
	}
}

// Every segment ChildSegment extracts must rejoin to a path at or under
// full; backends rely on this pair to pick direct children out of a scan.
func TestChildSegmentJoinRoundTrip(t *testing.T) {
	cases := [][2]string{
		{"", "projects"},
		{"siteConfig", "siteConfig/hero"},
		{"files/logo_png", "files/logo_png/chunk1/data"},
	}
	for _, c := range cases {
		seg := ChildSegment(c[0], c[1])
		if seg == "" {
			t.Fatalf("ChildSegment(%q, %q) = empty", c[0], c[1])
		}
		joined := JoinPath(c[0], seg)
		if joined != c[1] && !strings.HasPrefix(c[1], joined+"/") {
			t.Errorf("JoinPath(%q, %q) = %q does not prefix %q", c[0], seg, joined, c[1])
		}
	}
}
