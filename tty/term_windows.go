//go:build windows

package tty

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"unicode/utf16"
	"unsafe"

	"github.com/erikgeiser/coninput"
	"golang.org/x/sys/windows"

	"github.com/lineterm/lineterm/config"
	"github.com/lineterm/lineterm/keys"
	"github.com/lineterm/lineterm/layout"
)

var (
	kernel32                       = windows.NewLazySystemDLL("kernel32.dll")
	procSetConsoleCursorPosition   = kernel32.NewProc("SetConsoleCursorPosition")
	procFillConsoleOutputCharacter = kernel32.NewProc("FillConsoleOutputCharacterW")
)

// coordValue packs a COORD for APIs that take it by value.
func coordValue(c windows.Coord) uintptr {
	return uintptr(uint32(uint16(c.X)) | uint32(uint16(c.Y))<<16)
}

func setConsoleCursorPosition(h windows.Handle, pos windows.Coord) error {
	rc, _, err := procSetConsoleCursorPosition.Call(uintptr(h), coordValue(pos))
	if rc == 0 {
		return fmt.Errorf("tty: SetConsoleCursorPosition: %w", err)
	}
	return nil
}

func fillConsoleOutputCharacter(h windows.Handle, length uint32, pos windows.Coord) error {
	var written uint32
	rc, _, err := procFillConsoleOutputCharacter.Call(
		uintptr(h),
		uintptr(uint16(' ')),
		uintptr(length),
		coordValue(pos),
		uintptr(unsafe.Pointer(&written)),
	)
	if rc == 0 {
		return fmt.Errorf("tty: FillConsoleOutputCharacterW: %w", err)
	}
	return nil
}

func getStdHandle(fd uint32) (windows.Handle, error) {
	h, err := windows.GetStdHandle(fd)
	if err != nil {
		return windows.InvalidHandle, fmt.Errorf("tty: GetStdHandle: %w", err)
	}
	if h == 0 {
		return windows.InvalidHandle, fmt.Errorf("tty: no stdio handle available for this process")
	}
	return h, nil
}

func getConsoleMode(h windows.Handle) (uint32, error) {
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return 0, fmt.Errorf("tty: GetConsoleMode: %w", err)
	}
	return mode, nil
}

func getScreenBufferInfo(h windows.Handle) (windows.ConsoleScreenBufferInfo, error) {
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(h, &info); err != nil {
		return info, fmt.Errorf("tty: GetConsoleScreenBufferInfo: %w", err)
	}
	return info, nil
}

// getConsoleWinSize queries the visible window size, falling back to 80x24
// when the query fails.
func getConsoleWinSize(h windows.Handle) (cols, rows int) {
	info, err := getScreenBufferInfo(h)
	if err != nil {
		return 80, 24
	}
	return int(info.Size.X), int(info.Window.Bottom-info.Window.Top) + 1
}

// ConsoleRawReader decodes structured console input records into the same
// key vocabulary the byte-stream decoder produces.
type ConsoleRawReader struct {
	conin     windows.Handle
	pending   []coninput.InputRecord
	surrogate rune // pending high surrogate half
}

func newConsoleRawReader(conin windows.Handle) *ConsoleRawReader {
	return &ConsoleRawReader{conin: conin}
}

// NextKey implements RawReader. A window-resize record raises the resize
// flag and then surfaces as ErrWindowResized so the caller observes resize
// through the same flag-polling contract as the byte-stream platform.
func (r *ConsoleRawReader) NextKey(_ bool) (keys.KeyPress, error) {
	for {
		if len(r.pending) == 0 {
			recs, err := coninput.ReadNConsoleInputs(r.conin, 16)
			if err != nil {
				return keys.KeyPress{}, fmt.Errorf("tty: ReadConsoleInput: %w", err)
			}
			r.pending = recs
			continue
		}
		rec := r.pending[0]
		r.pending = r.pending[1:]

		switch e := rec.Unwrap().(type) {
		case coninput.WindowBufferSizeEventRecord:
			sigwinch.Store(true)
			slog.Debug("window resized")
			return keys.KeyPress{}, ErrWindowResized
		case coninput.KeyEventRecord:
			kp, ok, err := r.decodeKeyEvent(e)
			if err != nil {
				return keys.KeyPress{}, err
			}
			if ok {
				slog.Debug("key decoded", "key", kp.String())
				return kp, nil
			}
		default:
			// focus, menu and mouse records carry nothing for us
		}
	}
}

func (r *ConsoleRawReader) decodeKeyEvent(e coninput.KeyEventRecord) (keys.KeyPress, bool, error) {
	// key-up records are skipped, except for the Alt key itself which
	// delivers its character on release
	if !e.KeyDown && e.VirtualKeyCode != coninput.VK_MENU {
		return keys.KeyPress{}, false, nil
	}

	altGr := e.ControlKeyState.Contains(coninput.LEFT_CTRL_PRESSED | coninput.RIGHT_ALT_PRESSED)
	alt := e.ControlKeyState.Contains(coninput.LEFT_ALT_PRESSED) ||
		e.ControlKeyState.Contains(coninput.RIGHT_ALT_PRESSED)
	ctrl := e.ControlKeyState.Contains(coninput.LEFT_CTRL_PRESSED) ||
		e.ControlKeyState.Contains(coninput.RIGHT_CTRL_PRESSED)
	meta := alt && !altGr
	shift := e.ControlKeyState.Contains(coninput.SHIFT_PRESSED)
	mods := keys.Mods(ctrl, meta, shift)

	if e.Char == 0 {
		var kp keys.KeyPress
		switch e.VirtualKeyCode {
		case coninput.VK_LEFT:
			kp = keys.Plain(keys.KeyLeft)
		case coninput.VK_RIGHT:
			kp = keys.Plain(keys.KeyRight)
		case coninput.VK_UP:
			kp = keys.Plain(keys.KeyUp)
		case coninput.VK_DOWN:
			kp = keys.Plain(keys.KeyDown)
		case coninput.VK_DELETE:
			kp = keys.Plain(keys.KeyDelete)
		case coninput.VK_HOME:
			kp = keys.Plain(keys.KeyHome)
		case coninput.VK_END:
			kp = keys.Plain(keys.KeyEnd)
		case coninput.VK_PRIOR:
			kp = keys.Plain(keys.KeyPageUp)
		case coninput.VK_NEXT:
			kp = keys.Plain(keys.KeyPageDown)
		case coninput.VK_INSERT:
			kp = keys.Plain(keys.KeyInsert)
		case coninput.VK_F1:
			kp = keys.FKey(1)
		case coninput.VK_F2:
			kp = keys.FKey(2)
		case coninput.VK_F3:
			kp = keys.FKey(3)
		case coninput.VK_F4:
			kp = keys.FKey(4)
		case coninput.VK_F5:
			kp = keys.FKey(5)
		case coninput.VK_F6:
			kp = keys.FKey(6)
		case coninput.VK_F7:
			kp = keys.FKey(7)
		case coninput.VK_F8:
			kp = keys.FKey(8)
		case coninput.VK_F9:
			kp = keys.FKey(9)
		case coninput.VK_F10:
			kp = keys.FKey(10)
		case coninput.VK_F11:
			kp = keys.FKey(11)
		case coninput.VK_F12:
			kp = keys.FKey(12)
		default:
			// VK_BACK and friends arrive with Char set and are
			// handled below
			return keys.KeyPress{}, false, nil
		}
		return kp.With(mods), true, nil
	}

	if e.Char == 27 {
		return keys.Plain(keys.KeyEsc).With(mods), true, nil
	}

	c := e.Char
	if utf16.IsSurrogate(c) {
		if r.surrogate == 0 {
			r.surrogate = c
			return keys.KeyPress{}, false, nil
		}
		c = utf16.DecodeRune(r.surrogate, c)
		r.surrogate = 0
		if c == 0xfffd {
			return keys.KeyPress{}, false, ErrInvalidEncoding
		}
	}

	if meta {
		return keys.Meta(c), true, nil
	}
	key := keys.CharToKeyPress(c)
	// the meta path above deliberately bypasses these remappings
	if key == keys.Plain(keys.KeyTab) && shift {
		key = keys.Plain(keys.KeyBackTab)
	} else if key == keys.CharPress(' ') && ctrl {
		key = keys.CtrlChar(' ')
	}
	return key, true, nil
}

// NextChar implements RawReader by draining key presses until a plain
// character arrives.
func (r *ConsoleRawReader) NextChar() (rune, error) {
	for {
		kp, err := r.NextKey(false)
		if err != nil {
			return 0, err
		}
		if kp.Key.Type == keys.KeyChar && kp.Mods == keys.ModNone {
			return kp.Key.Rune, nil
		}
	}
}

// ReadPastedText implements RawReader. The console delivers pastes as plain
// key events, so there is nothing to extract here.
func (r *ConsoleRawReader) ReadPastedText() (string, error) {
	return "", fmt.Errorf("tty: bracketed paste is not supported on this console")
}

// ConsoleMode is the raw-mode guard for the record-oriented platform.
type ConsoleMode struct {
	originalStdinMode  uint32
	stdinHandle        windows.Handle
	originalStreamMode uint32
	hasStreamMode      bool
	streamHandle       windows.Handle
}

// Disable implements RawMode. Reapplying the captured modes a second time is
// stable.
func (m *ConsoleMode) Disable() error {
	if err := windows.SetConsoleMode(m.stdinHandle, m.originalStdinMode); err != nil {
		return fmt.Errorf("tty: SetConsoleMode: %w", err)
	}
	if m.hasStreamMode {
		if err := windows.SetConsoleMode(m.streamHandle, m.originalStreamMode); err != nil {
			return fmt.Errorf("tty: SetConsoleMode: %w", err)
		}
	}
	return nil
}

// ConsoleRenderer achieves the same visual state as the ANSI renderer using
// direct cursor-position and fill-character console calls.
type ConsoleRenderer struct {
	out       io.Writer
	handle    windows.Handle
	cols      int
	buf       bytes.Buffer
	tabStop   int
	colors    bool
	bellStyle config.BellStyle
}

func newConsoleRenderer(out io.Writer, handle windows.Handle, tabStop int, colors bool, bell config.BellStyle) *ConsoleRenderer {
	r := &ConsoleRenderer{
		out:       out,
		handle:    handle,
		tabStop:   tabStop,
		colors:    colors,
		bellStyle: bell,
	}
	r.buf.Grow(1024)
	r.UpdateSize()
	return r
}

// MoveCursor implements Renderer.
func (r *ConsoleRenderer) MoveCursor(old, new layout.Position) error {
	info, err := getScreenBufferInfo(r.handle)
	if err != nil {
		return err
	}
	pos := info.CursorPosition
	pos.Y += int16(new.Row - old.Row)
	pos.X += int16(new.Col - old.Col)
	return setConsoleCursorPosition(r.handle, pos)
}

// RefreshLine implements Renderer: position at the start of the prompt,
// clear to the end of the previous input, rewrite prompt+line+hint, then
// place the cursor.
func (r *ConsoleRenderer) RefreshLine(prompt string, line LineBuffer, hint string, oldLayout, newLayout layout.Layout, highlighter Highlighter) error {
	cursor := newLayout.Cursor
	endPos := newLayout.End
	currentRow := oldLayout.Cursor.Row
	oldRows := oldLayout.End.Row

	r.buf.Reset()
	r.buf.WriteString(composeContent(prompt, line, hint, newLayout.DefaultPrompt, highlighter, r.colors))

	info, err := getScreenBufferInfo(r.handle)
	if err != nil {
		return err
	}
	coord := info.CursorPosition
	coord.X = 0
	coord.Y -= int16(currentRow)
	if err := setConsoleCursorPosition(r.handle, coord); err != nil {
		return err
	}
	if err := fillConsoleOutputCharacter(r.handle, uint32(info.Size.X)*uint32(oldRows+1), coord); err != nil {
		return err
	}
	if err := r.WriteAndFlush(r.buf.Bytes()); err != nil {
		return err
	}

	info, err = getScreenBufferInfo(r.handle)
	if err != nil {
		return err
	}
	coord = info.CursorPosition
	coord.X = int16(cursor.Col)
	coord.Y -= int16(endPos.Row - cursor.Row)
	return setConsoleCursorPosition(r.handle, coord)
}

// CalculatePosition implements Renderer using the shared geometry engine.
func (r *ConsoleRenderer) CalculatePosition(s string, orig layout.Position) layout.Position {
	return PositionAfter(s, orig, r.cols, r.tabStop)
}

// WriteAndFlush implements Renderer.
func (r *ConsoleRenderer) WriteAndFlush(buf []byte) error {
	if _, err := r.out.Write(buf); err != nil {
		return fmt.Errorf("tty: write: %w", err)
	}
	return nil
}

// Beep implements Renderer.
func (r *ConsoleRenderer) Beep() error {
	if r.bellStyle != config.BellAudible {
		return nil
	}
	if _, err := os.Stderr.Write([]byte("\a")); err != nil {
		return fmt.Errorf("tty: beep: %w", err)
	}
	return nil
}

// ClearScreen implements Renderer.
func (r *ConsoleRenderer) ClearScreen() error {
	info, err := getScreenBufferInfo(r.handle)
	if err != nil {
		return err
	}
	origin := windows.Coord{X: 0, Y: 0}
	if err := setConsoleCursorPosition(r.handle, origin); err != nil {
		return err
	}
	return fillConsoleOutputCharacter(r.handle, uint32(info.Size.X)*uint32(info.Size.Y), origin)
}

// Sigwinch implements Renderer with check-and-clear semantics on the shared
// resize flag.
func (r *ConsoleRenderer) Sigwinch() bool {
	return sigwinch.CompareAndSwap(true, false)
}

// UpdateSize implements Renderer.
func (r *ConsoleRenderer) UpdateSize() {
	r.cols, _ = getConsoleWinSize(r.handle)
}

func (r *ConsoleRenderer) GetColumns() int { return r.cols }

// GetRows re-queries the console, assuming 24 rows when the query fails.
func (r *ConsoleRenderer) GetRows() int {
	_, rows := getConsoleWinSize(r.handle)
	return rows
}

func (r *ConsoleRenderer) ColorsEnabled() bool { return r.colors }

// MoveCursorAtLeftmost implements Renderer. The console reports the cursor
// position directly, so no escape-sequence round trip is needed.
func (r *ConsoleRenderer) MoveCursorAtLeftmost(_ RawReader) error {
	// an empty write makes sure the reported position is current
	if err := r.WriteAndFlush(nil); err != nil {
		return err
	}
	info, err := getScreenBufferInfo(r.handle)
	if err != nil {
		return err
	}
	if info.CursorPosition.X == 0 {
		return nil
	}
	slog.Debug("initial cursor location",
		"col", info.CursorPosition.X, "row", info.CursorPosition.Y)
	pos := info.CursorPosition
	pos.X = 0
	pos.Y++
	return setConsoleCursorPosition(r.handle, pos)
}

// Terminal is the platform backend selected at build time.
type Terminal = Console

// Console is the capability probe for the record-oriented platform.
type Console struct {
	stdinIsatty  bool
	stdinHandle  windows.Handle
	streamIsatty bool
	streamHandle windows.Handle
	colorMode    config.ColorMode
	ansiColors   bool
	stream       config.OutputStream
	tabStop      int
	bellStyle    config.BellStyle
}

// NewTerminal probes the console handles once per session. Resize
// notifications arrive as input records, so no handler installation is
// needed here.
func NewTerminal(cfg config.Config) *Console {
	t := &Console{
		colorMode: cfg.ColorMode,
		stream:    cfg.OutputStream,
		tabStop:   cfg.TabStop,
		bellStyle: cfg.BellStyle,
	}
	if h, err := getStdHandle(windows.STD_INPUT_HANDLE); err == nil {
		t.stdinHandle = h
		// if the mode query succeeds the handle is a console
		_, err := getConsoleMode(h)
		t.stdinIsatty = err == nil
	}
	outFd := uint32(windows.STD_OUTPUT_HANDLE)
	if cfg.OutputStream == config.Stderr {
		outFd = uint32(windows.STD_ERROR_HANDLE)
	}
	if h, err := getStdHandle(outFd); err == nil {
		t.streamHandle = h
		_, err := getConsoleMode(h)
		t.streamIsatty = err == nil
	}
	return t
}

func (t *Console) colorsEnabled() bool {
	switch t.colorMode {
	case config.ColorForced:
		return true
	case config.ColorDisabled:
		return false
	default:
		return t.streamIsatty && t.ansiColors
	}
}

// IsUnsupported implements Term; there is no TERM deny-list on this
// platform.
func (t *Console) IsUnsupported() bool { return false }

func (t *Console) IsStdinTTY() bool { return t.stdinIsatty }

func (t *Console) IsOutputTTY() bool { return t.streamIsatty }

// EnableRawMode implements Term. Window input is enabled so resizes arrive
// as input records; the output side attempts virtual-terminal processing and
// records whether ANSI colors are available.
func (t *Console) EnableRawMode() (RawMode, error) {
	if !t.stdinIsatty {
		return nil, ErrNotATerminal
	}
	originalStdinMode, err := getConsoleMode(t.stdinHandle)
	if err != nil {
		return nil, err
	}
	raw := originalStdinMode &^ (windows.ENABLE_LINE_INPUT |
		windows.ENABLE_ECHO_INPUT |
		windows.ENABLE_PROCESSED_INPUT)
	raw |= windows.ENABLE_EXTENDED_FLAGS
	raw |= windows.ENABLE_INSERT_MODE
	raw |= windows.ENABLE_QUICK_EDIT_MODE
	raw |= windows.ENABLE_WINDOW_INPUT
	if err := windows.SetConsoleMode(t.stdinHandle, raw); err != nil {
		return nil, fmt.Errorf("tty: SetConsoleMode: %w", err)
	}

	mode := &ConsoleMode{
		originalStdinMode: originalStdinMode,
		stdinHandle:       t.stdinHandle,
		streamHandle:      t.streamHandle,
	}
	if t.streamIsatty {
		originalStreamMode, err := getConsoleMode(t.streamHandle)
		if err != nil {
			return nil, err
		}
		mode.originalStreamMode = originalStreamMode
		mode.hasStreamMode = true
		if originalStreamMode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING == 0 {
			vt := originalStreamMode | windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING
			t.ansiColors = windows.SetConsoleMode(t.streamHandle, vt) == nil
			slog.Debug("virtual terminal processing", "enabled", t.ansiColors)
		} else {
			t.ansiColors = true
		}
	}
	return mode, nil
}

// CreateReader implements Term.
func (t *Console) CreateReader(_ config.Config) (RawReader, error) {
	return newConsoleRawReader(t.stdinHandle), nil
}

// CreateWriter implements Term.
func (t *Console) CreateWriter() Renderer {
	return newConsoleRenderer(streamFile(t.stream), t.streamHandle, t.tabStop, t.colorsEnabled(), t.bellStyle)
}
