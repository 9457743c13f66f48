// Package config holds the configuration record consumed by the terminal
// driver. The record is resolved once at session start and treated as
// read-only afterwards.
package config

import "runtime"

// BellStyle selects how the driver signals an error to the user.
type BellStyle int

const (
	// BellAudible emits a BEL byte on the error stream.
	BellAudible BellStyle = iota
	// BellNone suppresses the bell entirely.
	BellNone
	// BellVisible is accepted for completeness but renders as no bell;
	// visible-bell output is not implemented by the driver.
	BellVisible
)

// ColorMode controls whether escape-colored output is produced.
type ColorMode int

const (
	// ColorEnabled produces colors only when the output stream is a TTY.
	ColorEnabled ColorMode = iota
	// ColorForced produces colors regardless of the output stream.
	ColorForced
	// ColorDisabled never produces colors.
	ColorDisabled
)

// OutputStream selects which standard stream the renderer writes to.
type OutputStream int

const (
	Stdout OutputStream = iota
	Stderr
)

// Config carries the options consumed by the driver. The zero value is not
// usable; start from Default.
type Config struct {
	// KeyseqTimeout is how long, in milliseconds, the decoder waits after
	// a lone ESC byte before deciding it is not the start of an escape
	// sequence. -1 disables escape sequence support entirely when the
	// caller requests single-escape-abort semantics.
	KeyseqTimeout int

	// TabStop is the width of a tab stop used for cursor geometry.
	TabStop int

	BellStyle    BellStyle
	ColorMode    ColorMode
	OutputStream OutputStream
}

// Default returns the configuration used when the caller does not override
// anything.
func Default() Config {
	bell := BellAudible
	if runtime.GOOS == "windows" {
		bell = BellNone
	}
	return Config{
		KeyseqTimeout: 500,
		TabStop:       8,
		BellStyle:     bell,
		ColorMode:     ColorEnabled,
		OutputStream:  Stdout,
	}
}
