// Package layout defines the screen geometry primitives shared by the
// input decoder and the renderer.
package layout

// Position is a zero-based screen offset relative to the first row of the
// current render. Col is always smaller than the terminal column count except
// transiently during width computation, where a trailing value equal to the
// column count is normalized to the first column of the next row.
type Position struct {
	Row int
	Col int
}

// Layout is a snapshot of one rendered state: where the cursor sits and where
// the content ends, plus whether the prompt is the library's default prompt.
// A Layout is produced fresh on every render request and never mutated in
// place, only replaced.
type Layout struct {
	Cursor Position
	End    Position

	// DefaultPrompt reports whether the prompt is the library default.
	// When a custom prompt spans multiple lines the old/new row counts
	// cannot be trusted across redraws.
	DefaultPrompt bool
}
