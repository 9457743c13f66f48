// Package tty is the terminal driver layer of the line editor: raw-mode
// lifecycle management, decoding of the raw input stream into key presses,
// and rendering of prompt+line+hint as minimal terminal mutations.
//
// Each supported platform implements the same contract: the byte-stream
// backend decodes VT100/ANSI escape sequences read from a file descriptor,
// the record-oriented backend maps structured console input records. Both
// are driven by a single-threaded, blocking editing loop; the only
// asynchronous element is the window-resize notification, which communicates
// through one process-wide atomic flag.
package tty

import (
	"bytes"
	"errors"
	"os"

	"github.com/charmbracelet/x/ansi"

	"github.com/lineterm/lineterm/config"
	"github.com/lineterm/lineterm/keys"
	"github.com/lineterm/lineterm/layout"
)

// Driver error taxonomy. Unrecognized escape sequences and failed
// best-effort operations are deliberately not part of it: they degrade to a
// sentinel key or a no-op plus a log line instead of aborting the session.
var (
	// ErrEOF reports that the input stream is closed.
	ErrEOF = errors.New("tty: end of input")
	// ErrInvalidEncoding reports input bytes that do not form valid UTF-8.
	ErrInvalidEncoding = errors.New("tty: invalid UTF-8 input")
	// ErrWindowResized is a control condition, not a true failure: it is
	// how the record-oriented platform surfaces a resize. Callers should
	// check Sigwinch, update the size and retry.
	ErrWindowResized = errors.New("tty: window resized")
	// ErrNotATerminal reports a raw-mode request on a non-TTY stream.
	ErrNotATerminal = errors.New("tty: not a terminal")
)

// RawMode is the guard returned by Term.EnableRawMode. Disable restores the
// terminal attributes captured at raw-mode entry and, if bracketed paste was
// enabled, turns it off again. It must run on every exit path of the
// interactive session; callers are expected to defer it.
type RawMode interface {
	Disable() error
}

// RawReader decodes the raw input stream into key presses. All methods block
// the calling goroutine until input is available or an error occurs.
type RawReader interface {
	// NextKey returns the next decoded key press. When singleEscAbort is
	// true and escape sequences are disabled by configuration, a lone ESC
	// byte is returned immediately as the Escape key.
	NextKey(singleEscAbort bool) (keys.KeyPress, error)

	// NextChar returns the next code point, assembling multi-byte UTF-8
	// sequences incrementally.
	NextChar() (rune, error)

	// ReadPastedText consumes a bracketed paste after the paste-start
	// marker has been decoded, returning the text with line endings
	// normalized to \n.
	ReadPastedText() (string, error)
}

// Renderer turns layout transitions into terminal mutations on the
// configured output stream.
type Renderer interface {
	// MoveCursor issues the minimal relative movement between two
	// positions.
	MoveCursor(old, new layout.Position) error

	// RefreshLine rewrites the prompt, line and hint, diffing the old
	// layout against the new one so only the affected rows are touched.
	RefreshLine(prompt string, line LineBuffer, hint string, oldLayout, newLayout layout.Layout, highlighter Highlighter) error

	// CalculatePosition returns the position of the cursor after s has
	// been printed starting at orig, under the terminal's wrap rules.
	CalculatePosition(s string, orig layout.Position) layout.Position

	// WriteAndFlush writes buf to the output stream and flushes it.
	WriteAndFlush(buf []byte) error

	// Beep rings the terminal bell according to the configured bell style.
	Beep() error

	// ClearScreen clears the visible buffer and homes the cursor.
	ClearScreen() error

	// Sigwinch performs a check-and-clear read of the resize flag and
	// reports whether a resize occurred since the last check.
	Sigwinch() bool

	// UpdateSize re-queries the terminal dimensions.
	UpdateSize()

	GetColumns() int
	GetRows() int

	// ColorsEnabled reports the color decision resolved at construction;
	// it does not change afterwards.
	ColorsEnabled() bool

	// MoveCursorAtLeftmost moves the terminal cursor to the leftmost
	// column if it is not already there. Used once at session start or
	// when external output may have moved the cursor. Best effort: any
	// failure to interrogate the terminal degrades to a no-op.
	MoveCursorAtLeftmost(rdr RawReader) error
}

// Term is the per-session capability probe. It is constructed once, examines
// the process environment and the standard streams, and builds the reader
// and writer sharing that configuration.
type Term interface {
	// IsUnsupported reports whether the terminal type is known not to
	// support an interactive line-editing interface.
	IsUnsupported() bool
	IsStdinTTY() bool
	IsOutputTTY() bool

	// EnableRawMode switches the input stream to raw (unbuffered,
	// unechoed, signal-free) mode and returns the guard that restores the
	// previous state.
	EnableRawMode() (RawMode, error)

	CreateReader(cfg config.Config) (RawReader, error)
	CreateWriter() Renderer
}

// Highlighter is the narrow decoration capability consumed by the renderer.
// Implementations must return display-ready text whose visible width
// accounting matches the input (escape runs are measured as zero width).
type Highlighter interface {
	// HighlightPrompt decorates the prompt. defaultPrompt reports whether
	// the prompt is the library default.
	HighlightPrompt(prompt string, defaultPrompt bool) string
	// Highlight decorates the edited line; pos is the cursor offset
	// within it.
	Highlight(line string, pos int) string
	// HighlightHint decorates the hint displayed after the line.
	HighlightHint(hint string) string
}

// LineBuffer is the collaborator supplying the text to measure and render.
type LineBuffer interface {
	// String returns the current line content.
	String() string
	// Pos returns the cursor offset within the line, in bytes.
	Pos() int
}

// streamFile resolves the configured output stream selector to the standard
// stream it names.
func streamFile(stream config.OutputStream) *os.File {
	if stream == config.Stderr {
		return os.Stderr
	}
	return os.Stdout
}

// composeContent builds the prompt+line+hint segment of a refresh. When
// colors are disabled, decoration emitted by the highlighter (or embedded in
// the prompt itself) is stripped so the visible text still lines up with the
// layout the geometry engine computed.
func composeContent(prompt string, line LineBuffer, hint string, defaultPrompt bool, highlighter Highlighter, colors bool) string {
	var b bytes.Buffer
	appendPromptAndLine(&b, highlighter, line, prompt, defaultPrompt)
	appendHint(&b, highlighter, hint)
	if colors {
		return b.String()
	}
	return ansi.Strip(b.String())
}

// appendPromptAndLine writes the prompt and the edited line into the render
// buffer, routing both through the highlighter when one is installed.
func appendPromptAndLine(buf *bytes.Buffer, highlighter Highlighter, line LineBuffer, prompt string, defaultPrompt bool) {
	if highlighter != nil {
		buf.WriteString(highlighter.HighlightPrompt(prompt, defaultPrompt))
		buf.WriteString(highlighter.Highlight(line.String(), line.Pos()))
		return
	}
	buf.WriteString(prompt)
	buf.WriteString(line.String())
}

// appendHint writes the hint, decorated when a highlighter is installed.
func appendHint(buf *bytes.Buffer, highlighter Highlighter, hint string) {
	if hint == "" {
		return
	}
	if highlighter != nil {
		buf.WriteString(highlighter.HighlightHint(hint))
		return
	}
	buf.WriteString(hint)
}
