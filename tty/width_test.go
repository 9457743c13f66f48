package tty

import (
	"strings"
	"testing"

	"github.com/lineterm/lineterm/layout"
)

func TestPositionAfter(t *testing.T) {
	origin := layout.Position{}
	tests := []struct {
		name    string
		s       string
		orig    layout.Position
		cols    int
		tabStop int
		want    layout.Position
	}{
		{"empty", "", origin, 80, 8, layout.Position{Row: 0, Col: 0}},
		{"ascii", "hello", origin, 80, 8, layout.Position{Row: 0, Col: 5}},
		{"from offset", "abc", layout.Position{Row: 1, Col: 10}, 80, 8, layout.Position{Row: 1, Col: 13}},
		{"newline resets column", "ab\ncd", origin, 80, 8, layout.Position{Row: 1, Col: 2}},
		{"tab to next stop", "a\tb", origin, 80, 8, layout.Position{Row: 0, Col: 9}},
		{"tab at stop advances full stop", "\t", layout.Position{Col: 8}, 80, 8, layout.Position{Row: 0, Col: 16}},
		{"wide characters", "你好", origin, 80, 8, layout.Position{Row: 0, Col: 4}},
		{"color escape is zero width", "\x1b[1;32m>>\x1b[0m ", origin, 80, 8, layout.Position{Row: 0, Col: 3}},
		{"wrap", strings.Repeat("x", 85), origin, 80, 8, layout.Position{Row: 1, Col: 5}},
		{"exact width wraps to next row", strings.Repeat("x", 80), origin, 80, 8, layout.Position{Row: 1, Col: 0}},
		{"wide char does not split at boundary", strings.Repeat("x", 79) + "你", origin, 80, 8, layout.Position{Row: 1, Col: 2}},
		{"combining mark as one cluster", "éx", origin, 80, 8, layout.Position{Row: 0, Col: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionAfter(tt.s, tt.orig, tt.cols, tt.tabStop)
			if got != tt.want {
				t.Fatalf("PositionAfter(%q, %+v) = %+v, want %+v", tt.s, tt.orig, got, tt.want)
			}
		})
	}
}

func TestPositionAfterMatchesPlainLength(t *testing.T) {
	// for plain ASCII that fits on one row, the column is just the length
	for _, s := range []string{"a", "hello world", "0123456789"} {
		got := PositionAfter(s, layout.Position{}, 80, 8)
		if got.Row != 0 || got.Col != len(s) {
			t.Fatalf("PositionAfter(%q) = %+v, want {0 %d}", s, got, len(s))
		}
	}
}
