package postgres

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateTaskError(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short stays intact", "chat not found", "chat not found"},
		{
			"exact limit stays intact",
			strings.Repeat("a", maxTaskErrorLen),
			strings.Repeat("a", maxTaskErrorLen),
		},
		{
			"ascii overflow cut at the limit",
			strings.Repeat("a", maxTaskErrorLen+100),
			strings.Repeat("a", maxTaskErrorLen),
		},
		{
			// The limit lands in the middle of a two-byte rune; the cut
			// backs up to the previous boundary.
			"multi-byte rune not split",
			strings.Repeat("a", maxTaskErrorLen-1) + strings.Repeat("ж", 5),
			strings.Repeat("a", maxTaskErrorLen-1),
		},
		{
			"cyrillic overflow cut on a rune boundary",
			strings.Repeat("п", maxTaskErrorLen),
			strings.Repeat("п", maxTaskErrorLen/2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateTaskError(tt.in)
			if got != tt.want {
				t.Fatalf("truncateTaskError() = %q, want %q", got, tt.want)
			}
			if len(got) > maxTaskErrorLen {
				t.Fatalf("result is %d bytes, limit is %d", len(got), maxTaskErrorLen)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("result is not valid UTF-8: %q", got)
			}
		})
	}
}
