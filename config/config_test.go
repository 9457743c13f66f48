package config

import (
	"runtime"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.KeyseqTimeout != 500 {
		t.Fatalf("KeyseqTimeout = %d, want 500", cfg.KeyseqTimeout)
	}
	if cfg.TabStop != 8 {
		t.Fatalf("TabStop = %d, want 8", cfg.TabStop)
	}
	wantBell := BellAudible
	if runtime.GOOS == "windows" {
		wantBell = BellNone
	}
	if cfg.BellStyle != wantBell {
		t.Fatalf("BellStyle = %v, want %v", cfg.BellStyle, wantBell)
	}
	if cfg.ColorMode != ColorEnabled {
		t.Fatalf("ColorMode = %v, want ColorEnabled", cfg.ColorMode)
	}
	if cfg.OutputStream != Stdout {
		t.Fatalf("OutputStream = %v, want Stdout", cfg.OutputStream)
	}
}
