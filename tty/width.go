package tty

import (
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/lineterm/lineterm/layout"
)

// PositionAfter computes where the cursor ends up after s has been printed
// starting at orig on a terminal with cols columns. The text is iterated by
// grapheme cluster so user-perceived characters are never split; widths
// follow standard terminal rules (0, 1 or 2 cells). A newline resets the
// column and advances the row, a tab advances to the next multiple of
// tabStop, and escape sequences of the form ESC [ <digits/;>... contribute
// zero width so colorized prompts measure correctly.
//
// Wrapping matches the terminal: when the accumulated column would exceed
// cols the row advances and the column restarts at the width of the
// overflowing cluster. A final column exactly equal to cols is normalized to
// the first column of the next row, matching terminals that defer the wrap
// to the next printed character.
func PositionAfter(s string, orig layout.Position, cols, tabStop int) layout.Position {
	pos := orig
	escSeq := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		c := gr.Str()
		if c == "\n" {
			pos.Row++
			pos.Col = 0
			continue
		}
		var cw int
		if c == "\t" {
			cw = tabStop - pos.Col%tabStop
		} else {
			cw = clusterWidth(c, &escSeq)
		}
		pos.Col += cw
		if pos.Col > cols {
			pos.Row++
			pos.Col = cw
		}
	}
	if pos.Col == cols {
		pos.Col = 0
		pos.Row++
	}
	return pos
}

// clusterWidth returns the display width of one grapheme cluster, tracking a
// small state machine that recognizes CSI escape runs as zero-width. escSeq
// holds the state across calls: 0 outside a sequence, 1 after a bare ESC,
// 2 inside ESC [ parameter bytes.
func clusterWidth(c string, escSeq *int) int {
	switch {
	case *escSeq == 1:
		if c == "[" {
			// CSI
			*escSeq = 2
		} else {
			// two-character sequence
			*escSeq = 0
		}
		return 0
	case *escSeq == 2:
		if c != ";" && (c[0] < '0' || c[0] > '9') {
			// final byte ends the sequence
			*escSeq = 0
		}
		return 0
	case c == "\x1b":
		*escSeq = 1
		return 0
	case c == "\n":
		return 0
	default:
		return runewidth.StringWidth(c)
	}
}
