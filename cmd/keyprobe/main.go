// Command keyprobe reads key presses in raw mode and prints how each one
// decodes. Useful for checking what escape sequences a terminal emits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/x/ansi"

	"github.com/lineterm/lineterm/config"
	"github.com/lineterm/lineterm/keys"
	"github.com/lineterm/lineterm/tty"
)

func main() {
	timeout := flag.Int("timeout", 500, "Escape sequence timeout in milliseconds (-1 to wait forever)")
	singleEsc := flag.Bool("single-esc", false, "Report a lone ESC byte immediately instead of waiting for a sequence")
	debug := flag.Bool("debug", false, "Log decoding details to stderr")
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	cfg := config.Default()
	cfg.KeyseqTimeout = *timeout

	term := tty.NewTerminal(cfg)
	if term.IsUnsupported() {
		fmt.Fprintln(os.Stderr, "Unsupported terminal (check $TERM)")
		os.Exit(1)
	}
	if !term.IsStdinTTY() {
		fmt.Fprintln(os.Stderr, "Stdin is not a terminal")
		os.Exit(1)
	}

	mode, err := term.EnableRawMode()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enable raw mode: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := mode.Disable(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to restore terminal: %v\n", err)
		}
	}()

	rdr, err := term.CreateReader(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create reader: %v\n", err)
		return
	}
	wrt := term.CreateWriter()

	fmt.Printf("Terminal: %dx%d, colors %v\r\n", wrt.GetColumns(), wrt.GetRows(), wrt.ColorsEnabled())
	fmt.Print("Press keys (Ctrl+C or Ctrl+D to exit):\r\n")

	for {
		kp, err := rdr.NextKey(*singleEsc)
		if err != nil {
			switch {
			case errors.Is(err, tty.ErrWindowResized):
				if wrt.Sigwinch() {
					wrt.UpdateSize()
					fmt.Printf("Resized: %dx%d\r\n", wrt.GetColumns(), wrt.GetRows())
				}
				continue
			case errors.Is(err, tty.ErrEOF):
				return
			case errors.Is(err, tty.ErrInvalidEncoding):
				fmt.Print("Invalid UTF-8 input\r\n")
				continue
			default:
				fmt.Fprintf(os.Stderr, "Read error: %v\r\n", err)
				return
			}
		}

		switch kp.Key.Type {
		case keys.KeyBracketedPasteStart:
			text, err := rdr.ReadPastedText()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Paste error: %v\r\n", err)
				continue
			}
			fmt.Printf("Pasted %d bytes: %q\r\n", len(text), ansi.Strip(text))
			continue
		case keys.KeyUnknownEscSeq:
			fmt.Print("Key: unknown escape sequence\r\n")
			continue
		}

		fmt.Printf("Key: %s\r\n", kp)

		if kp == keys.CtrlChar('C') || kp == keys.CtrlChar('D') {
			return
		}
	}
}
