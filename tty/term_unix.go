//go:build !windows

package tty

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"unicode/utf8"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/lineterm/lineterm/config"
	"github.com/lineterm/lineterm/keys"
	"github.com/lineterm/lineterm/layout"
)

// Terminal types that cannot host an interactive line-editing interface.
var unsupportedTerms = []string{"dumb", "cons25", "emacs"}

// Bracketed paste enable/disable sequences. These exact bytes are part of the
// wire contract with terminal emulators.
const (
	bracketedPasteOn  = "\x1b[?2004h"
	bracketedPasteOff = "\x1b[?2004l"
)

var sigwinchOnce sync.Once

// installSigwinchHandler installs the process-wide resize notification at
// most once. The receiving goroutine does nothing but set the flag; the
// renderer polls it, never blocking on it.
func installSigwinchHandler() {
	sigwinchOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, unix.SIGWINCH)
		go func() {
			for range ch {
				sigwinch.Store(true)
			}
		}()
	})
}

// isUnsupportedTerm checks the TERM environment variable against the
// deny-list of known non-interactive terminal types.
func isUnsupportedTerm() bool {
	t := os.Getenv("TERM")
	if t == "" {
		return false
	}
	for _, u := range unsupportedTerms {
		if strings.EqualFold(u, t) {
			return true
		}
	}
	return false
}

// getWinSize queries the terminal size for fd, falling back to 80x24 when
// the query fails.
func getWinSize(fd int) (cols, rows int) {
	w, h, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return 80, 24
	}
	return w, h
}

// stdinRaw reads directly from the file descriptor. Interrupted reads are
// retried transparently, unless a resize notification is pending: then the
// error is surfaced so the caller gets a chance to poll the resize flag
// instead of blocking indefinitely.
type stdinRaw struct {
	fd int
}

func (s stdinRaw) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(s.fd, p)
		if err != nil {
			if err == unix.EINTR {
				if sigwinch.Load() {
					return 0, ErrWindowResized
				}
				continue
			}
			return 0, fmt.Errorf("tty: read: %w", err)
		}
		return n, nil
	}
}

// utf8Acceptor assembles one code point from a sequence of single bytes. It
// holds only the state needed for the code point in flight.
type utf8Acceptor struct {
	have [4]byte
	n    int
	want int
}

// advance feeds one byte. It returns the completed code point with ok set,
// or ErrInvalidEncoding when the byte cannot continue a valid sequence.
func (d *utf8Acceptor) advance(b byte) (r rune, ok bool, err error) {
	if d.want == 0 {
		switch {
		case b < 0x80:
			return rune(b), true, nil
		case b&0xe0 == 0xc0:
			d.want = 2
		case b&0xf0 == 0xe0:
			d.want = 3
		case b&0xf8 == 0xf0:
			d.want = 4
		default:
			return 0, false, ErrInvalidEncoding
		}
		d.have[0] = b
		d.n = 1
		return 0, false, nil
	}
	if b&0xc0 != 0x80 {
		d.n, d.want = 0, 0
		return 0, false, ErrInvalidEncoding
	}
	d.have[d.n] = b
	d.n++
	if d.n < d.want {
		return 0, false, nil
	}
	n := d.n
	d.n, d.want = 0, 0
	r, size := utf8.DecodeRune(d.have[:n])
	if size != n {
		// overlong encodings and surrogates land here
		return 0, false, ErrInvalidEncoding
	}
	return r, true, nil
}

// PosixRawReader decodes the byte stream of a raw-mode terminal into key
// presses.
type PosixRawReader struct {
	stdin     stdinRaw
	timeoutMS int
	buf       [1]byte
	utf8      utf8Acceptor
}

func newPosixRawReader(fd int, cfg config.Config) *PosixRawReader {
	return &PosixRawReader{
		stdin:     stdinRaw{fd: fd},
		timeoutMS: cfg.KeyseqTimeout,
	}
}

// pollInput reports whether input is available on the reader's descriptor,
// waiting up to timeoutMS milliseconds. A negative timeout blocks until
// input arrives.
func (r *PosixRawReader) pollInput(timeoutMS int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(r.stdin.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMS)
	if err != nil {
		return false, fmt.Errorf("tty: poll: %w", err)
	}
	return n > 0, nil
}

// NextChar reads bytes one at a time until they assemble a full code point.
func (r *PosixRawReader) NextChar() (rune, error) {
	for {
		n, err := r.stdin.Read(r.buf[:])
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ErrEOF
		}
		c, ok, err := r.utf8.advance(r.buf[0])
		if err != nil {
			return 0, err
		}
		if ok {
			return c, nil
		}
	}
}

// NextKey implements RawReader. A lone ESC is disambiguated from the start
// of an escape sequence by waiting up to the configured key-sequence timeout
// for further input.
func (r *PosixRawReader) NextKey(singleEscAbort bool) (keys.KeyPress, error) {
	c, err := r.NextChar()
	if err != nil {
		return keys.KeyPress{}, err
	}

	key := keys.CharToKeyPress(c)
	if key == keys.Plain(keys.KeyEsc) {
		timeout := r.timeoutMS
		if singleEscAbort && timeout == -1 {
			// no escape sequence support: return Escape immediately
			timeout = 0
		}
		ready, err := r.pollInput(timeout)
		if err != nil {
			return keys.KeyPress{}, err
		}
		if ready {
			key, err = r.escapeSequence()
			if err != nil {
				return keys.KeyPress{}, err
			}
		}
	}
	slog.Debug("key decoded", "key", key.String())
	return key, nil
}

// escapeSequence handles ESC <seq1> sequences.
func (r *PosixRawReader) escapeSequence() (keys.KeyPress, error) {
	seq1, err := r.NextChar()
	if err != nil {
		return keys.KeyPress{}, err
	}
	switch seq1 {
	case '[':
		// CSI
		return r.escapeCSI()
	case 'O':
		// SS3 (xterm)
		return r.escapeO()
	case '\x1b':
		// ESC ESC
		return keys.Plain(keys.KeyEsc), nil
	default:
		return keys.Meta(seq1), nil
	}
}

// escapeCSI handles ESC [ <seq2> sequences.
func (r *PosixRawReader) escapeCSI() (keys.KeyPress, error) {
	seq2, err := r.NextChar()
	if err != nil {
		return keys.KeyPress{}, err
	}
	if seq2 >= '0' && seq2 <= '9' {
		if seq2 == '0' || seq2 == '9' {
			slog.Debug("unsupported escape sequence", "seq", "ESC [ "+string(seq2))
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		}
		// extended escape, read additional bytes
		return r.extendedEscape(seq2)
	}
	if seq2 == '[' {
		// Linux console F1..F5
		seq3, err := r.NextChar()
		if err != nil {
			return keys.KeyPress{}, err
		}
		if seq3 >= 'A' && seq3 <= 'E' {
			return keys.FKey(int(seq3-'A') + 1), nil
		}
		slog.Debug("unsupported escape sequence", "seq", "ESC [ [ "+string(seq3))
		return keys.Plain(keys.KeyUnknownEscSeq), nil
	}
	switch seq2 {
	case 'A':
		return keys.Plain(keys.KeyUp), nil // kcuu1
	case 'B':
		return keys.Plain(keys.KeyDown), nil // kcud1
	case 'C':
		return keys.Plain(keys.KeyRight), nil // kcuf1
	case 'D':
		return keys.Plain(keys.KeyLeft), nil // kcub1
	case 'F':
		return keys.Plain(keys.KeyEnd), nil
	case 'H':
		return keys.Plain(keys.KeyHome), nil // khome
	case 'Z':
		return keys.Plain(keys.KeyBackTab), nil
	default:
		slog.Debug("unsupported escape sequence", "seq", "ESC [ "+string(seq2))
		return keys.Plain(keys.KeyUnknownEscSeq), nil
	}
}

// extendedEscape handles ESC [ <seq2:digit> sequences.
func (r *PosixRawReader) extendedEscape(seq2 rune) (keys.KeyPress, error) {
	seq3, err := r.NextChar()
	if err != nil {
		return keys.KeyPress{}, err
	}
	if seq3 == '~' {
		switch seq2 {
		case '1', '7':
			return keys.Plain(keys.KeyHome), nil // tmux, xrvt
		case '2':
			return keys.Plain(keys.KeyInsert), nil
		case '3':
			return keys.Plain(keys.KeyDelete), nil // kdch1
		case '4', '8':
			return keys.Plain(keys.KeyEnd), nil // tmux, xrvt
		case '5':
			return keys.Plain(keys.KeyPageUp), nil // kpp
		case '6':
			return keys.Plain(keys.KeyPageDown), nil // knp
		default:
			slog.Debug("unsupported escape sequence", "seq", fmt.Sprintf("ESC [ %c ~", seq2))
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		}
	}
	if seq3 >= '0' && seq3 <= '9' {
		seq4, err := r.NextChar()
		if err != nil {
			return keys.KeyPress{}, err
		}
		switch {
		case seq4 == '~':
			// rxvt/xterm numeric function key table
			switch [2]rune{seq2, seq3} {
			case [2]rune{'1', '1'}:
				return keys.FKey(1), nil // rxvt-unicode
			case [2]rune{'1', '2'}:
				return keys.FKey(2), nil
			case [2]rune{'1', '3'}:
				return keys.FKey(3), nil
			case [2]rune{'1', '4'}:
				return keys.FKey(4), nil
			case [2]rune{'1', '5'}:
				return keys.FKey(5), nil // kf5
			case [2]rune{'1', '7'}:
				return keys.FKey(6), nil // kf6
			case [2]rune{'1', '8'}:
				return keys.FKey(7), nil // kf7
			case [2]rune{'1', '9'}:
				return keys.FKey(8), nil // kf8
			case [2]rune{'2', '0'}:
				return keys.FKey(9), nil // kf9
			case [2]rune{'2', '1'}:
				return keys.FKey(10), nil // kf10
			case [2]rune{'2', '3'}:
				return keys.FKey(11), nil // kf11
			case [2]rune{'2', '4'}:
				return keys.FKey(12), nil // kf12
			default:
				slog.Debug("unsupported escape sequence", "seq", fmt.Sprintf("ESC [ %c%c ~", seq2, seq3))
				return keys.Plain(keys.KeyUnknownEscSeq), nil
			}
		case seq4 == ';':
			// ESC [ <n1><n2> ; <m> ... reserved for future modifier
			// parsing; consumed as a cursor-position-report shape.
			seq5, err := r.NextChar()
			if err != nil {
				return keys.KeyPress{}, err
			}
			if seq5 >= '0' && seq5 <= '9' {
				seq6, err := r.NextChar()
				if err != nil {
					return keys.KeyPress{}, err
				}
				if seq6 >= '0' && seq6 <= '9' {
					if _, err := r.NextChar(); err != nil { // 'R' expected
						return keys.KeyPress{}, err
					}
				} else if seq6 != 'R' {
					slog.Debug("unsupported escape sequence",
						"seq", fmt.Sprintf("ESC [ %c%c ; %c %c", seq2, seq3, seq5, seq6))
				}
			} else {
				slog.Debug("unsupported escape sequence",
					"seq", fmt.Sprintf("ESC [ %c%c ; %c", seq2, seq3, seq5))
			}
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		case seq4 >= '0' && seq4 <= '9':
			seq5, err := r.NextChar()
			if err != nil {
				return keys.KeyPress{}, err
			}
			if seq5 == '~' {
				switch [3]rune{seq2, seq3, seq4} {
				case [3]rune{'2', '0', '0'}:
					return keys.Plain(keys.KeyBracketedPasteStart), nil
				case [3]rune{'2', '0', '1'}:
					return keys.Plain(keys.KeyBracketedPasteEnd), nil
				}
			}
			slog.Debug("unsupported escape sequence",
				"seq", fmt.Sprintf("ESC [ %c%c%c %c", seq2, seq3, seq4, seq5))
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		default:
			slog.Debug("unsupported escape sequence",
				"seq", fmt.Sprintf("ESC [ %c%c %c", seq2, seq3, seq4))
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		}
	}
	if seq3 == ';' {
		// ESC [ <n> ; <m> <c>: modifier-prefixed arrows, or a
		// cursor-position report when <c> is another digit.
		seq4, err := r.NextChar()
		if err != nil {
			return keys.KeyPress{}, err
		}
		if seq4 < '0' || seq4 > '9' {
			slog.Debug("unsupported escape sequence",
				"seq", fmt.Sprintf("ESC [ %c ; %c", seq2, seq4))
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		}
		seq5, err := r.NextChar()
		if err != nil {
			return keys.KeyPress{}, err
		}
		if seq5 >= '0' && seq5 <= '9' {
			if _, err := r.NextChar(); err != nil { // 'R' expected
				return keys.KeyPress{}, err
			}
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		}
		if seq2 == '1' {
			if kp, ok := modifiedArrow(seq4, seq5); ok {
				return kp, nil
			}
			slog.Debug("unsupported escape sequence",
				"seq", fmt.Sprintf("ESC [ 1 ; %c %c", seq4, seq5))
			return keys.Plain(keys.KeyUnknownEscSeq), nil
		}
		slog.Debug("unsupported escape sequence",
			"seq", fmt.Sprintf("ESC [ %c ; %c %c", seq2, seq4, seq5))
		return keys.Plain(keys.KeyUnknownEscSeq), nil
	}
	// plain ESC [ <m> <A..D> form
	if kp, ok := modifiedArrow(seq2, seq3); ok {
		return kp, nil
	}
	slog.Debug("unsupported escape sequence",
		"seq", fmt.Sprintf("ESC [ %c %c", seq2, seq3))
	return keys.Plain(keys.KeyUnknownEscSeq), nil
}

// modifiedArrow maps xterm modifier digit + arrow letter: 5 is Ctrl, 2 is
// Shift.
func modifiedArrow(mod, letter rune) (keys.KeyPress, bool) {
	var arrow keys.KeyType
	switch letter {
	case 'A':
		arrow = keys.KeyUp
	case 'B':
		arrow = keys.KeyDown
	case 'C':
		arrow = keys.KeyRight
	case 'D':
		arrow = keys.KeyLeft
	default:
		return keys.KeyPress{}, false
	}
	switch mod {
	case '5':
		return keys.Ctrl(arrow), true
	case '2':
		return keys.Shift(arrow), true
	default:
		return keys.KeyPress{}, false
	}
}

// escapeO handles ESC O <seq2> (SS3) sequences.
func (r *PosixRawReader) escapeO() (keys.KeyPress, error) {
	seq2, err := r.NextChar()
	if err != nil {
		return keys.KeyPress{}, err
	}
	switch seq2 {
	case 'A':
		return keys.Plain(keys.KeyUp), nil // kcuu1
	case 'B':
		return keys.Plain(keys.KeyDown), nil // kcud1
	case 'C':
		return keys.Plain(keys.KeyRight), nil // kcuf1
	case 'D':
		return keys.Plain(keys.KeyLeft), nil // kcub1
	case 'F':
		return keys.Plain(keys.KeyEnd), nil // kend
	case 'H':
		return keys.Plain(keys.KeyHome), nil // khome
	case 'P':
		return keys.FKey(1), nil // kf1
	case 'Q':
		return keys.FKey(2), nil // kf2
	case 'R':
		return keys.FKey(3), nil // kf3
	case 'S':
		return keys.FKey(4), nil // kf4
	case 'a':
		return keys.Ctrl(keys.KeyUp), nil
	case 'b':
		return keys.Ctrl(keys.KeyDown), nil
	case 'c':
		return keys.Ctrl(keys.KeyRight), nil // rxvt
	case 'd':
		return keys.Ctrl(keys.KeyLeft), nil // rxvt
	default:
		slog.Debug("unsupported escape sequence", "seq", "ESC O "+string(seq2))
		return keys.Plain(keys.KeyUnknownEscSeq), nil
	}
}

// ReadPastedText implements RawReader. Escape sequences other than the
// paste-end marker encountered mid-paste are swallowed rather than
// reinjected; a paste containing legitimate escape bytes is therefore lossy.
// Known limitation, kept deliberately.
func (r *PosixRawReader) ReadPastedText() (string, error) {
	var b strings.Builder
	for {
		c, err := r.NextChar()
		if err != nil {
			return "", err
		}
		if c == '\x1b' {
			key, err := r.escapeSequence()
			if err != nil {
				return "", err
			}
			if key.Key.Type == keys.KeyBracketedPasteEnd {
				break
			}
			continue
		}
		b.WriteRune(c)
	}
	text := strings.ReplaceAll(b.String(), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

// readDigitsUntil reads decimal digits until sep, saturating on overflow
// rather than wrapping. ok is false when a non-digit other than sep arrives.
func readDigitsUntil(r *PosixRawReader, sep rune) (num int, ok bool, err error) {
	for {
		c, err := r.NextChar()
		if err != nil {
			return 0, false, err
		}
		switch {
		case c >= '0' && c <= '9':
			if num > (math.MaxInt32-9)/10 {
				num = math.MaxInt32
			} else {
				num = num*10 + int(c-'0')
			}
		case c == sep:
			return num, true, nil
		default:
			return 0, false, nil
		}
	}
}

// PosixMode is the raw-mode guard for the byte-stream platform. It captures
// the original terminal attributes and whether bracketed paste was enabled.
type PosixMode struct {
	termios  unix.Termios
	fd       int
	pasteOut io.Writer // nil when bracketed paste could not be enabled
}

// Disable implements RawMode: it reapplies the original attribute block and
// turns bracketed paste back off if it was turned on. Calling it a second
// time reapplies the same saved attributes and is therefore stable.
func (m *PosixMode) Disable() error {
	if err := unix.IoctlSetTermios(m.fd, ioctlWriteTermios, &m.termios); err != nil {
		return fmt.Errorf("tty: tcsetattr: %w", err)
	}
	if m.pasteOut != nil {
		if _, err := m.pasteOut.Write([]byte(bracketedPasteOff)); err != nil {
			return fmt.Errorf("tty: disable bracketed paste: %w", err)
		}
	}
	return nil
}

// PosixRenderer writes ANSI terminal mutations to the configured output
// stream. All movement is expressed as relative cursor-movement codes
// computed from old/new layouts; the cursor position is never read back
// except by the leftmost-cursor probe.
type PosixRenderer struct {
	out       io.Writer
	outFd     int
	cols      int
	buf       bytes.Buffer // reusable mutation buffer
	tabStop   int
	colors    bool
	bellStyle config.BellStyle
}

func newPosixRenderer(out io.Writer, outFd, tabStop int, colors bool, bell config.BellStyle) *PosixRenderer {
	r := &PosixRenderer{
		out:       out,
		outFd:     outFd,
		tabStop:   tabStop,
		colors:    colors,
		bellStyle: bell,
	}
	r.buf.Grow(1024)
	r.UpdateSize()
	return r
}

// MoveCursor implements Renderer: nothing for a zero delta on an axis, the
// single-step short form for a magnitude-1 delta, otherwise the
// count-parameterized form.
func (r *PosixRenderer) MoveCursor(old, new layout.Position) error {
	r.buf.Reset()
	switch {
	case new.Row > old.Row:
		if shift := new.Row - old.Row; shift == 1 {
			r.buf.WriteString("\x1b[B")
		} else {
			fmt.Fprintf(&r.buf, "\x1b[%dB", shift)
		}
	case new.Row < old.Row:
		if shift := old.Row - new.Row; shift == 1 {
			r.buf.WriteString("\x1b[A")
		} else {
			fmt.Fprintf(&r.buf, "\x1b[%dA", shift)
		}
	}
	switch {
	case new.Col > old.Col:
		if shift := new.Col - old.Col; shift == 1 {
			r.buf.WriteString("\x1b[C")
		} else {
			fmt.Fprintf(&r.buf, "\x1b[%dC", shift)
		}
	case new.Col < old.Col:
		if shift := old.Col - new.Col; shift == 1 {
			r.buf.WriteString("\x1b[D")
		} else {
			fmt.Fprintf(&r.buf, "\x1b[%dD", shift)
		}
	}
	return r.WriteAndFlush(r.buf.Bytes())
}

// RefreshLine implements Renderer: move down to the last old row, clear the
// old rows bottom-up, clear the current line, write prompt+line+hint, then
// move back up to the new cursor row and position the column.
func (r *PosixRenderer) RefreshLine(prompt string, line LineBuffer, hint string, oldLayout, newLayout layout.Layout, highlighter Highlighter) error {
	r.buf.Reset()

	cursor := newLayout.Cursor
	endPos := newLayout.End
	currentRow := oldLayout.Cursor.Row
	oldRows := oldLayout.End.Row

	// oldRows can be smaller than currentRow when the prompt spans
	// multiple lines and this is the default state.
	if shift := oldRows - currentRow; shift > 0 {
		fmt.Fprintf(&r.buf, "\x1b[%dB", shift)
	}
	// clear old rows bottom-up
	for i := 0; i < oldRows; i++ {
		r.buf.WriteString("\r\x1b[0K\x1b[A")
	}
	// clear the line
	r.buf.WriteString("\r\x1b[0K")

	r.buf.WriteString(composeContent(prompt, line, hint, newLayout.DefaultPrompt, highlighter, r.colors))

	// move the cursor up from the content end to the cursor row
	if up := endPos.Row - cursor.Row; up > 0 {
		fmt.Fprintf(&r.buf, "\x1b[%dA", up)
	}
	// position the cursor within the line
	if cursor.Col == 0 {
		r.buf.WriteByte('\r')
	} else {
		fmt.Fprintf(&r.buf, "\r\x1b[%dC", cursor.Col)
	}

	return r.WriteAndFlush(r.buf.Bytes())
}

// CalculatePosition implements Renderer using the shared geometry engine.
func (r *PosixRenderer) CalculatePosition(s string, orig layout.Position) layout.Position {
	return PositionAfter(s, orig, r.cols, r.tabStop)
}

// WriteAndFlush implements Renderer.
func (r *PosixRenderer) WriteAndFlush(buf []byte) error {
	if _, err := r.out.Write(buf); err != nil {
		return fmt.Errorf("tty: write: %w", err)
	}
	return nil
}

// Beep implements Renderer. The bell goes to the error stream so it is
// heard even when the renderer writes to a redirected stdout.
func (r *PosixRenderer) Beep() error {
	if r.bellStyle != config.BellAudible {
		return nil
	}
	if _, err := os.Stderr.Write([]byte("\a")); err != nil {
		return fmt.Errorf("tty: beep: %w", err)
	}
	return nil
}

// ClearScreen implements Renderer. Used to handle Ctrl-L.
func (r *PosixRenderer) ClearScreen() error {
	return r.WriteAndFlush([]byte("\x1b[H\x1b[2J"))
}

// Sigwinch implements Renderer with check-and-clear semantics on the shared
// resize flag.
func (r *PosixRenderer) Sigwinch() bool {
	return sigwinch.CompareAndSwap(true, false)
}

// UpdateSize implements Renderer.
func (r *PosixRenderer) UpdateSize() {
	r.cols, _ = getWinSize(r.outFd)
}

func (r *PosixRenderer) GetColumns() int { return r.cols }

// GetRows re-queries the terminal, assuming 24 rows when the query fails.
func (r *PosixRenderer) GetRows() int {
	_, rows := getWinSize(r.outFd)
	return rows
}

func (r *PosixRenderer) ColorsEnabled() bool { return r.colors }

// MoveCursorAtLeftmost implements Renderer: it asks the terminal for a
// cursor-position report and emits a newline when the reported column is not
// the leftmost one. Skipped when input is already pending (interleaving a
// query with typed-ahead input is too risky) and degrades to a logged no-op
// on any malformed response.
func (r *PosixRenderer) MoveCursorAtLeftmost(rdr RawReader) error {
	pr, ok := rdr.(*PosixRawReader)
	if !ok {
		return nil
	}
	pending, err := pr.pollInput(0)
	if err != nil {
		return err
	}
	if pending {
		slog.Debug("cannot request cursor location: input pending")
		return nil
	}
	// request a cursor-position report
	if err := r.WriteAndFlush([]byte("\x1b[6n")); err != nil {
		return err
	}
	// read the response: ESC [ rows ; cols R
	ready, err := pr.pollInput(100)
	if err != nil {
		return err
	}
	if !ready {
		slog.Warn("cannot read initial cursor location")
		return nil
	}
	if c, err := pr.NextChar(); err != nil {
		return err
	} else if c != '\x1b' {
		slog.Warn("cannot read initial cursor location")
		return nil
	}
	if c, err := pr.NextChar(); err != nil {
		return err
	} else if c != '[' {
		slog.Warn("cannot read initial cursor location")
		return nil
	}
	if _, ok, err := readDigitsUntil(pr, ';'); err != nil {
		return err
	} else if !ok {
		slog.Warn("cannot read initial cursor location")
		return nil
	}
	col, ok, err := readDigitsUntil(pr, 'R')
	if err != nil {
		return err
	}
	slog.Debug("initial cursor location", "col", col)
	if ok && col != 1 {
		return r.WriteAndFlush([]byte("\n"))
	}
	return nil
}

// Terminal is the platform backend selected at build time.
type Terminal = PosixTerminal

// PosixTerminal is the capability probe for the byte-stream platform. It is
// immutable after construction.
type PosixTerminal struct {
	unsupported  bool
	stdinIsatty  bool
	streamIsatty bool
	colorMode    config.ColorMode
	stream       config.OutputStream
	tabStop      int
	bellStyle    config.BellStyle
}

// NewTerminal probes the environment and the standard streams once per
// session. When the session can run interactively it also installs the
// process-wide resize notification.
func NewTerminal(cfg config.Config) *PosixTerminal {
	outFd := streamFile(cfg.OutputStream).Fd()
	t := &PosixTerminal{
		unsupported:  isUnsupportedTerm(),
		stdinIsatty:  isatty.IsTerminal(os.Stdin.Fd()),
		streamIsatty: isatty.IsTerminal(outFd),
		colorMode:    cfg.ColorMode,
		stream:       cfg.OutputStream,
		tabStop:      cfg.TabStop,
		bellStyle:    cfg.BellStyle,
	}
	if !t.unsupported && t.stdinIsatty && t.streamIsatty {
		installSigwinchHandler()
	}
	return t
}

func (t *PosixTerminal) colorsEnabled() bool {
	switch t.colorMode {
	case config.ColorForced:
		return true
	case config.ColorDisabled:
		return false
	default:
		return t.streamIsatty
	}
}

// IsUnsupported reports whether the current terminal can provide a rich
// line-editing user interface.
func (t *PosixTerminal) IsUnsupported() bool { return t.unsupported }

func (t *PosixTerminal) IsStdinTTY() bool { return t.stdinIsatty }

func (t *PosixTerminal) IsOutputTTY() bool { return t.streamIsatty }

// enableRawMode captures the attribute block of fd, switches it to raw mode
// and returns the guard holding the original block.
func enableRawMode(fd int) (*PosixMode, error) {
	orig, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, fmt.Errorf("tty: tcgetattr: %w", err)
	}
	raw := *orig
	// disable BREAK interrupt, CR to NL conversion on input, input parity
	// check, strip high bit, and output flow control
	raw.Iflag &^= unix.BRKINT | unix.ICRNL | unix.INPCK | unix.ISTRIP | unix.IXON
	// output processing stays enabled: raw output turns newlines into
	// straight line feeds
	// character-size mark (8 bits)
	raw.Cflag |= unix.CS8
	// disable echoing, canonical mode, extended input processing and
	// signal generation
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.IEXTEN | unix.ISIG
	// one character at a time, blocking read
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return nil, fmt.Errorf("tty: tcsetattr: %w", err)
	}
	return &PosixMode{termios: *orig, fd: fd}, nil
}

// EnableRawMode implements Term. It captures the current attribute block,
// disables signal generation, canonical input, echo and the various
// input-translation/flow-control behaviors, sets one-byte blocking reads,
// and best-effort enables bracketed paste on the output stream.
func (t *PosixTerminal) EnableRawMode() (RawMode, error) {
	if !t.stdinIsatty {
		return nil, ErrNotATerminal
	}
	mode, err := enableRawMode(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	out := streamFile(t.stream)
	if _, err := out.Write([]byte(bracketedPasteOn)); err != nil {
		slog.Debug("cannot enable bracketed paste", "err", err)
	} else {
		mode.pasteOut = out
	}
	return mode, nil
}

// CreateReader implements Term.
func (t *PosixTerminal) CreateReader(cfg config.Config) (RawReader, error) {
	return newPosixRawReader(syscall.Stdin, cfg), nil
}

// CreateWriter implements Term.
func (t *PosixTerminal) CreateWriter() Renderer {
	out := streamFile(t.stream)
	return newPosixRenderer(out, int(out.Fd()), t.tabStop, t.colorsEnabled(), t.bellStyle)
}

// Suspend stops the whole process group with SIGTSTP. The caller is expected
// to disable raw mode first and re-enable it on resume.
func Suspend() error {
	if err := unix.Kill(0, unix.SIGTSTP); err != nil {
		return fmt.Errorf("tty: suspend: %w", err)
	}
	return nil
}
