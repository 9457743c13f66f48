package keys

import "testing"

func TestCharToKeyPress(t *testing.T) {
	tests := []struct {
		name string
		in   rune
		want KeyPress
	}{
		{"null is ctrl-space", 0x00, CtrlChar(' ')},
		{"ctrl-a", 0x01, CtrlChar('A')},
		{"ctrl-h is backspace", 0x08, Plain(KeyBackspace)},
		{"ctrl-i is tab", 0x09, Plain(KeyTab)},
		{"ctrl-j", 0x0a, CtrlChar('J')},
		{"ctrl-m is enter", 0x0d, Plain(KeyEnter)},
		{"ctrl-z", 0x1a, CtrlChar('Z')},
		{"escape", 0x1b, Plain(KeyEsc)},
		{"fs is ctrl-backslash", 0x1c, CtrlChar('\\')},
		{"us is ctrl-underscore", 0x1f, CtrlChar('_')},
		{"del is backspace", 0x7f, Plain(KeyBackspace)},
		{"printable ascii", 'a', CharPress('a')},
		{"space", ' ', CharPress(' ')},
		{"multibyte", 'é', CharPress('é')},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CharToKeyPress(tt.in); got != tt.want {
				t.Fatalf("CharToKeyPress(%#x) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyPressString(t *testing.T) {
	tests := []struct {
		kp   KeyPress
		want string
	}{
		{CharPress('a'), "a"},
		{CtrlChar('C'), "C-C"},
		{Meta('f'), "M-f"},
		{Plain(KeyUp), "Up"},
		{Ctrl(KeyLeft), "C-Left"},
		{Shift(KeyDown), "S-Down"},
		{Plain(KeyBackTab), "BackTab"},
		{FKey(5), "F5"},
		{FKey(12).With(ModShift), "S-F12"},
		{CharPress('x').With(ModCtrl | ModMeta | ModShift), "S-M-C-x"},
		{Plain(KeyUnknownEscSeq), "UnknownEscSeq"},
	}
	for _, tt := range tests {
		if got := tt.kp.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestModsCombines(t *testing.T) {
	if got := Mods(false, false, false); got != ModNone {
		t.Fatalf("Mods(false, false, false) = %v, want ModNone", got)
	}
	if got := Mods(true, true, true); got != ModCtrl|ModMeta|ModShift {
		t.Fatalf("Mods(true, true, true) = %v", got)
	}
	if got := Mods(true, false, false); got != ModCtrl {
		t.Fatalf("Mods(true, false, false) = %v, want ModCtrl", got)
	}
}
