// Package keys defines the decoded-input vocabulary: the closed set of keys
// a terminal can produce, the modifier bits that can accompany them, and the
// mapping from raw control characters to key presses.
package keys

import (
	"fmt"
	"strings"
)

// KeyType discriminates the closed Key variant set.
type KeyType uint8

const (
	// KeyNull is the zero value; it never results from decoding.
	KeyNull KeyType = iota
	// KeyChar is a plain character key; the rune is carried alongside.
	KeyChar
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyInsert
	KeyDelete
	KeyTab
	KeyBackTab
	KeyEsc
	KeyEnter
	KeyBackspace
	// KeyF is a function key F1..F12; the number is carried alongside.
	KeyF
	KeyBracketedPasteStart
	KeyBracketedPasteEnd
	// KeyUnknownEscSeq marks an escape sequence the decoder does not
	// recognize. It is surfaced rather than dropped so upper layers can
	// log or ignore it deliberately.
	KeyUnknownEscSeq
)

var keyTypeNames = map[KeyType]string{
	KeyNull:                "Null",
	KeyUp:                  "Up",
	KeyDown:                "Down",
	KeyLeft:                "Left",
	KeyRight:               "Right",
	KeyHome:                "Home",
	KeyEnd:                 "End",
	KeyPageUp:              "PageUp",
	KeyPageDown:            "PageDown",
	KeyInsert:              "Insert",
	KeyDelete:              "Delete",
	KeyTab:                 "Tab",
	KeyBackTab:             "BackTab",
	KeyEsc:                 "Escape",
	KeyEnter:               "Enter",
	KeyBackspace:           "Backspace",
	KeyBracketedPasteStart: "PasteStart",
	KeyBracketedPasteEnd:   "PasteEnd",
	KeyUnknownEscSeq:       "UnknownEscSeq",
}

// Key is one member of the closed variant set. Keys compare with ==.
type Key struct {
	Type KeyType
	// Rune is set when Type is KeyChar.
	Rune rune
	// Num is set when Type is KeyF.
	Num int
}

// Char returns the key for a plain character.
func Char(r rune) Key { return Key{Type: KeyChar, Rune: r} }

// F returns the function key Fn.
func F(n int) Key { return Key{Type: KeyF, Num: n} }

func (k Key) String() string {
	switch k.Type {
	case KeyChar:
		return string(k.Rune)
	case KeyF:
		return fmt.Sprintf("F%d", k.Num)
	default:
		if name, ok := keyTypeNames[k.Type]; ok {
			return name
		}
		return fmt.Sprintf("KeyType(%d)", k.Type)
	}
}

// Modifiers is the set of modifier keys held for a key press.
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModMeta
	ModShift

	ModNone Modifiers = 0
)

func (m Modifiers) String() string {
	var b strings.Builder
	if m&ModShift != 0 {
		b.WriteString("S-")
	}
	if m&ModMeta != 0 {
		b.WriteString("M-")
	}
	if m&ModCtrl != 0 {
		b.WriteString("C-")
	}
	return b.String()
}

// KeyPress pairs a key with the modifiers held when it was produced.
// Dispatch by upper layers is on the full pair.
type KeyPress struct {
	Key  Key
	Mods Modifiers
}

func (kp KeyPress) String() string {
	return kp.Mods.String() + kp.Key.String()
}

// Plain returns a named key press with no modifiers.
func Plain(t KeyType) KeyPress { return KeyPress{Key: Key{Type: t}} }

// Ctrl returns a named key press with the Ctrl modifier set.
func Ctrl(t KeyType) KeyPress { return KeyPress{Key: Key{Type: t}, Mods: ModCtrl} }

// Shift returns a named key press with the Shift modifier set.
func Shift(t KeyType) KeyPress { return KeyPress{Key: Key{Type: t}, Mods: ModShift} }

// CharPress returns a character key press with no modifiers.
func CharPress(r rune) KeyPress { return KeyPress{Key: Char(r)} }

// CtrlChar returns a character key press with the Ctrl modifier set.
func CtrlChar(r rune) KeyPress { return KeyPress{Key: Char(r), Mods: ModCtrl} }

// Meta returns the key press for a meta-prefixed character: on the
// byte-stream platform this is a character preceded by a bare ESC, on the
// record-oriented platform a character typed while Alt is held.
func Meta(r rune) KeyPress { return KeyPress{Key: Char(r), Mods: ModMeta} }

// FKey returns the key press for the function key Fn.
func FKey(n int) KeyPress { return KeyPress{Key: F(n)} }

// Mods returns m combined from the individual modifier states.
func Mods(ctrl, meta, shift bool) Modifiers {
	var m Modifiers
	if ctrl {
		m |= ModCtrl
	}
	if meta {
		m |= ModMeta
	}
	if shift {
		m |= ModShift
	}
	return m
}

// With returns kp with the extra modifiers added.
func (kp KeyPress) With(m Modifiers) KeyPress {
	kp.Mods |= m
	return kp
}

// CharToKeyPress maps a decoded code point to a key press following the
// historical control-character convention: Ctrl+letter arrives as the
// corresponding 0x00-0x1F control code.
func CharToKeyPress(r rune) KeyPress {
	switch {
	case r == 0x00:
		return CtrlChar(' ') // Ctrl-Space / Ctrl-@
	case r == 0x08:
		return Plain(KeyBackspace) // Ctrl-H
	case r == 0x09:
		return Plain(KeyTab) // Ctrl-I
	case r == 0x0d:
		return Plain(KeyEnter) // Ctrl-M
	case r == 0x1b:
		return Plain(KeyEsc)
	case r == 0x7f:
		return Plain(KeyBackspace) // DEL
	case r >= 0x01 && r <= 0x1a:
		return CtrlChar('A' + r - 0x01)
	case r >= 0x1c && r <= 0x1f:
		return CtrlChar('\\' + r - 0x1c) // \ ] ^ _
	default:
		return CharPress(r)
	}
}
