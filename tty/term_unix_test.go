//go:build !windows

package tty

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/lineterm/lineterm/config"
	"github.com/lineterm/lineterm/keys"
	"github.com/lineterm/lineterm/layout"
)

// newTestReader builds a reader over the read end of a pipe; the returned
// writer feeds it input bytes.
func newTestReader(t *testing.T) (*PosixRawReader, *os.File) {
	t.Helper()
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		pr.Close()
		pw.Close()
	})
	cfg := config.Default()
	cfg.KeyseqTimeout = 50
	return newPosixRawReader(int(pr.Fd()), cfg), pw
}

func feed(t *testing.T, w *os.File, s string) {
	t.Helper()
	if _, err := w.WriteString(s); err != nil {
		t.Fatalf("write input: %v", err)
	}
}

func TestNextKeyPlainChars(t *testing.T) {
	rdr, w := newTestReader(t)
	feed(t, w, "a\x01\x0dé")

	want := []keys.KeyPress{
		keys.CharPress('a'),
		keys.CtrlChar('A'),
		keys.Plain(keys.KeyEnter),
		keys.CharPress('é'),
	}
	for _, wk := range want {
		got, err := rdr.NextKey(false)
		if err != nil {
			t.Fatalf("NextKey: %v", err)
		}
		if got != wk {
			t.Fatalf("NextKey = %v, want %v", got, wk)
		}
	}
}

func TestNextKeyEscapeSequences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want keys.KeyPress
	}{
		{"up", "\x1b[A", keys.Plain(keys.KeyUp)},
		{"down", "\x1b[B", keys.Plain(keys.KeyDown)},
		{"right", "\x1b[C", keys.Plain(keys.KeyRight)},
		{"left", "\x1b[D", keys.Plain(keys.KeyLeft)},
		{"home", "\x1b[H", keys.Plain(keys.KeyHome)},
		{"end", "\x1b[F", keys.Plain(keys.KeyEnd)},
		{"backtab", "\x1b[Z", keys.Plain(keys.KeyBackTab)},
		{"insert", "\x1b[2~", keys.Plain(keys.KeyInsert)},
		{"delete", "\x1b[3~", keys.Plain(keys.KeyDelete)},
		{"page up", "\x1b[5~", keys.Plain(keys.KeyPageUp)},
		{"page down", "\x1b[6~", keys.Plain(keys.KeyPageDown)},
		{"home tmux", "\x1b[1~", keys.Plain(keys.KeyHome)},
		{"end rxvt", "\x1b[8~", keys.Plain(keys.KeyEnd)},
		{"ctrl-up xterm", "\x1b[1;5A", keys.Ctrl(keys.KeyUp)},
		{"shift-right xterm", "\x1b[1;2C", keys.Shift(keys.KeyRight)},
		{"ctrl-up short form", "\x1b[5A", keys.Ctrl(keys.KeyUp)},
		{"shift-down short form", "\x1b[2B", keys.Shift(keys.KeyDown)},
		{"ctrl-up rxvt", "\x1bOa", keys.Ctrl(keys.KeyUp)},
		{"ctrl-left rxvt", "\x1bOd", keys.Ctrl(keys.KeyLeft)},
		{"f1 ss3", "\x1bOP", keys.FKey(1)},
		{"f4 ss3", "\x1bOS", keys.FKey(4)},
		{"f1 linux console", "\x1b[[A", keys.FKey(1)},
		{"f5 linux console", "\x1b[[E", keys.FKey(5)},
		{"f5 xterm", "\x1b[15~", keys.FKey(5)},
		{"f6 xterm", "\x1b[17~", keys.FKey(6)},
		{"f10 xterm", "\x1b[21~", keys.FKey(10)},
		{"f12 xterm", "\x1b[24~", keys.FKey(12)},
		{"home ss3", "\x1bOH", keys.Plain(keys.KeyHome)},
		{"meta char", "\x1bf", keys.Meta('f')},
		{"esc esc", "\x1b\x1b", keys.Plain(keys.KeyEsc)},
		{"paste start", "\x1b[200~", keys.Plain(keys.KeyBracketedPasteStart)},
		{"paste end", "\x1b[201~", keys.Plain(keys.KeyBracketedPasteEnd)},
		{"unrecognized final byte", "\x1b[P", keys.Plain(keys.KeyUnknownEscSeq)},
		{"unrecognized tilde family", "\x1b[9~", keys.Plain(keys.KeyUnknownEscSeq)},
		{"cursor position report", "\x1b[2;3R", keys.Plain(keys.KeyUnknownEscSeq)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdr, w := newTestReader(t)
			feed(t, w, tt.in)
			got, err := rdr.NextKey(false)
			if err != nil {
				t.Fatalf("NextKey(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Fatalf("NextKey(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNextKeyLoneEscape(t *testing.T) {
	rdr, w := newTestReader(t)
	feed(t, w, "\x1b")
	got, err := rdr.NextKey(false)
	if err != nil {
		t.Fatalf("NextKey: %v", err)
	}
	if want := keys.Plain(keys.KeyEsc); got != want {
		t.Fatalf("NextKey = %v, want %v", got, want)
	}
}

func TestNextKeySingleEscAbort(t *testing.T) {
	// with sequences disabled, a lone ESC must come back without waiting
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		pr.Close()
		pw.Close()
	})
	cfg := config.Default()
	cfg.KeyseqTimeout = -1
	rdr := newPosixRawReader(int(pr.Fd()), cfg)

	feed(t, pw, "\x1b")
	got, err := rdr.NextKey(true)
	if err != nil {
		t.Fatalf("NextKey: %v", err)
	}
	if want := keys.Plain(keys.KeyEsc); got != want {
		t.Fatalf("NextKey = %v, want %v", got, want)
	}
}

func TestReadPastedText(t *testing.T) {
	rdr, w := newTestReader(t)
	feed(t, w, "\x1b[200~hello\r\nworld\rlast\x1b[201~")

	got, err := rdr.NextKey(false)
	if err != nil {
		t.Fatalf("NextKey: %v", err)
	}
	if want := keys.Plain(keys.KeyBracketedPasteStart); got != want {
		t.Fatalf("NextKey = %v, want %v", got, want)
	}
	text, err := rdr.ReadPastedText()
	if err != nil {
		t.Fatalf("ReadPastedText: %v", err)
	}
	if want := "hello\nworld\nlast"; text != want {
		t.Fatalf("ReadPastedText = %q, want %q", text, want)
	}
}

func TestReadPastedTextSwallowsEscapes(t *testing.T) {
	rdr, w := newTestReader(t)
	feed(t, w, "\x1b[200~ab\x1b[Acd\x1b[201~")

	if _, err := rdr.NextKey(false); err != nil {
		t.Fatalf("NextKey: %v", err)
	}
	text, err := rdr.ReadPastedText()
	if err != nil {
		t.Fatalf("ReadPastedText: %v", err)
	}
	if want := "abcd"; text != want {
		t.Fatalf("ReadPastedText = %q, want %q", text, want)
	}
}

func TestNextCharInvalidUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"invalid lead byte", "\xff"},
		{"bare continuation byte", "\x80"},
		{"truncated sequence", "\xc3a"},
		{"overlong encoding", "\xc0\x80"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rdr, w := newTestReader(t)
			feed(t, w, tt.in)
			_, err := rdr.NextChar()
			if !errors.Is(err, ErrInvalidEncoding) {
				t.Fatalf("NextChar(%q) error = %v, want ErrInvalidEncoding", tt.in, err)
			}
		})
	}
}

func TestNextCharEOF(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() { pr.Close() })
	rdr := newPosixRawReader(int(pr.Fd()), config.Default())
	pw.Close()

	if _, err := rdr.NextChar(); !errors.Is(err, ErrEOF) {
		t.Fatalf("NextChar error = %v, want ErrEOF", err)
	}
}

func TestRawModeDisableIsIdempotent(t *testing.T) {
	ptmx, tts, err := pty.Open()
	if err != nil {
		t.Skipf("cannot open pty: %v", err)
	}
	t.Cleanup(func() {
		ptmx.Close()
		tts.Close()
	})

	fd := int(tts.Fd())
	orig, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		t.Fatalf("tcgetattr: %v", err)
	}

	mode, err := enableRawMode(fd)
	if err != nil {
		t.Fatalf("enableRawMode: %v", err)
	}
	raw, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		t.Fatalf("tcgetattr: %v", err)
	}
	if raw.Lflag&(unix.ECHO|unix.ICANON|unix.ISIG) != 0 {
		t.Fatalf("raw mode left echo/canonical/signal bits set: %#x", raw.Lflag)
	}
	if raw.Iflag&unix.IXON != 0 {
		t.Fatalf("raw mode left flow control enabled: %#x", raw.Iflag)
	}

	if err := mode.Disable(); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	restored, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		t.Fatalf("tcgetattr: %v", err)
	}
	if *restored != *orig {
		t.Fatalf("attributes after restore = %+v, want %+v", restored, orig)
	}

	// a second restore must leave the terminal in the same state
	if err := mode.Disable(); err != nil {
		t.Fatalf("second Disable: %v", err)
	}
	restored, err = unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		t.Fatalf("tcgetattr: %v", err)
	}
	if *restored != *orig {
		t.Fatalf("attributes after second restore = %+v, want %+v", restored, orig)
	}
}

func TestIsUnsupportedTerm(t *testing.T) {
	tests := []struct {
		term string
		want bool
	}{
		{"dumb", true},
		{"DUMB", true},
		{"cons25", true},
		{"emacs", true},
		{"xterm-256color", false},
		{"screen", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Setenv("TERM", tt.term)
		if got := isUnsupportedTerm(); got != tt.want {
			t.Fatalf("isUnsupportedTerm() with TERM=%q = %v, want %v", tt.term, got, tt.want)
		}
	}
}

func TestSigwinchCheckAndClear(t *testing.T) {
	r := newPosixRenderer(&bytes.Buffer{}, -1, 8, true, config.BellNone)
	sigwinch.Store(true)
	if !r.Sigwinch() {
		t.Fatal("Sigwinch() = false after a resize was flagged")
	}
	if r.Sigwinch() {
		t.Fatal("Sigwinch() = true on second check, flag was not cleared")
	}
}

type testLine struct {
	s   string
	pos int
}

func (l testLine) String() string { return l.s }
func (l testLine) Pos() int       { return l.pos }

func TestMoveCursor(t *testing.T) {
	tests := []struct {
		name     string
		old, new layout.Position
		want     string
	}{
		{"no move", layout.Position{Row: 1, Col: 1}, layout.Position{Row: 1, Col: 1}, ""},
		{"down one", layout.Position{}, layout.Position{Row: 1}, "\x1b[B"},
		{"up three", layout.Position{Row: 3}, layout.Position{}, "\x1b[3A"},
		{"right one", layout.Position{}, layout.Position{Col: 1}, "\x1b[C"},
		{"left two", layout.Position{Col: 2}, layout.Position{}, "\x1b[2D"},
		{"row and column", layout.Position{Row: 2, Col: 4}, layout.Position{Row: 0, Col: 9}, "\x1b[2A\x1b[5C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := newPosixRenderer(&out, -1, 8, true, config.BellNone)
			if err := r.MoveCursor(tt.old, tt.new); err != nil {
				t.Fatalf("MoveCursor: %v", err)
			}
			if got := out.String(); got != tt.want {
				t.Fatalf("MoveCursor wrote %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRefreshLineSingleRow(t *testing.T) {
	var out bytes.Buffer
	r := newPosixRenderer(&out, -1, 8, true, config.BellNone)

	line := testLine{s: "ab", pos: 2}
	lay := layout.Layout{
		Cursor: layout.Position{Row: 0, Col: 5},
		End:    layout.Position{Row: 0, Col: 5},
	}
	if err := r.RefreshLine(">> ", line, "", lay, lay, nil); err != nil {
		t.Fatalf("RefreshLine: %v", err)
	}
	if got, want := out.String(), "\r\x1b[0K>> ab\r\x1b[5C"; got != want {
		t.Fatalf("RefreshLine wrote %q, want %q", got, want)
	}
}

func TestRefreshLineClearsOldRows(t *testing.T) {
	var out bytes.Buffer
	r := newPosixRenderer(&out, -1, 8, true, config.BellNone)

	line := testLine{s: "ab", pos: 2}
	oldLayout := layout.Layout{
		Cursor: layout.Position{Row: 0, Col: 3},
		End:    layout.Position{Row: 1, Col: 4},
	}
	newLayout := layout.Layout{
		Cursor: layout.Position{Row: 0, Col: 5},
		End:    layout.Position{Row: 0, Col: 5},
	}
	if err := r.RefreshLine(">> ", line, "", oldLayout, newLayout, nil); err != nil {
		t.Fatalf("RefreshLine: %v", err)
	}
	want := "\x1b[1B" + "\r\x1b[0K\x1b[A" + "\r\x1b[0K" + ">> ab" + "\r\x1b[5C"
	if got := out.String(); got != want {
		t.Fatalf("RefreshLine wrote %q, want %q", got, want)
	}
}

func TestRefreshLineCursorMidLine(t *testing.T) {
	var out bytes.Buffer
	r := newPosixRenderer(&out, -1, 8, true, config.BellNone)

	line := testLine{s: "abcd", pos: 1}
	lay := layout.Layout{
		Cursor: layout.Position{Row: 0, Col: 4},
		End:    layout.Position{Row: 0, Col: 7},
	}
	if err := r.RefreshLine(">> ", line, "", lay, lay, nil); err != nil {
		t.Fatalf("RefreshLine: %v", err)
	}
	if got, want := out.String(), "\r\x1b[0K>> abcd\r\x1b[4C"; got != want {
		t.Fatalf("RefreshLine wrote %q, want %q", got, want)
	}
}

type testHighlighter struct{}

func (testHighlighter) HighlightPrompt(prompt string, _ bool) string {
	return "\x1b[1;32m" + prompt + "\x1b[0m"
}
func (testHighlighter) Highlight(line string, _ int) string { return line }
func (testHighlighter) HighlightHint(hint string) string {
	return "\x1b[2m" + hint + "\x1b[0m"
}

func TestRefreshLineWithHighlighter(t *testing.T) {
	var out bytes.Buffer
	r := newPosixRenderer(&out, -1, 8, true, config.BellNone)

	line := testLine{s: "ab", pos: 2}
	lay := layout.Layout{
		Cursor: layout.Position{Row: 0, Col: 5},
		End:    layout.Position{Row: 0, Col: 9},
	}
	if err := r.RefreshLine(">> ", line, "hint", lay, lay, testHighlighter{}); err != nil {
		t.Fatalf("RefreshLine: %v", err)
	}
	got := out.String()
	// the visible content must be unchanged by the decoration
	if visible := ansi.Strip(got); visible != "\r>> abhint\r" {
		t.Fatalf("visible content = %q, want %q", visible, "\r>> abhint\r")
	}
	if !bytes.Contains(out.Bytes(), []byte("\x1b[1;32m>> \x1b[0m")) {
		t.Fatalf("output %q does not contain the highlighted prompt", got)
	}
}

func TestRefreshLineStripsDecorationWhenColorsDisabled(t *testing.T) {
	var out bytes.Buffer
	r := newPosixRenderer(&out, -1, 8, false, config.BellNone)

	line := testLine{s: "ab", pos: 2}
	lay := layout.Layout{
		Cursor: layout.Position{Row: 0, Col: 5},
		End:    layout.Position{Row: 0, Col: 5},
	}
	if err := r.RefreshLine(">> ", line, "", lay, lay, testHighlighter{}); err != nil {
		t.Fatalf("RefreshLine: %v", err)
	}
	if got, want := out.String(), "\r\x1b[0K>> ab\r\x1b[5C"; got != want {
		t.Fatalf("RefreshLine wrote %q, want %q", got, want)
	}
}

func TestClearScreen(t *testing.T) {
	var out bytes.Buffer
	r := newPosixRenderer(&out, -1, 8, true, config.BellNone)
	if err := r.ClearScreen(); err != nil {
		t.Fatalf("ClearScreen: %v", err)
	}
	if got, want := out.String(), "\x1b[H\x1b[2J"; got != want {
		t.Fatalf("ClearScreen wrote %q, want %q", got, want)
	}
}

func TestRendererSizeFallback(t *testing.T) {
	// an invalid descriptor falls back to the conventional 80x24
	r := newPosixRenderer(&bytes.Buffer{}, -1, 8, true, config.BellNone)
	if got := r.GetColumns(); got != 80 {
		t.Fatalf("GetColumns() = %d, want 80", got)
	}
	if got := r.GetRows(); got != 24 {
		t.Fatalf("GetRows() = %d, want 24", got)
	}
}

func TestBeepRespectsBellStyle(t *testing.T) {
	r := newPosixRenderer(&bytes.Buffer{}, -1, 8, true, config.BellNone)
	if err := r.Beep(); err != nil {
		t.Fatalf("Beep: %v", err)
	}
}

func TestCalculatePositionUsesTabStop(t *testing.T) {
	r := newPosixRenderer(&bytes.Buffer{}, -1, 4, true, config.BellNone)
	got := r.CalculatePosition("a\tb", layout.Position{})
	if want := (layout.Position{Row: 0, Col: 5}); got != want {
		t.Fatalf("CalculatePosition = %+v, want %+v", got, want)
	}
}
