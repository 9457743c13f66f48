//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package tty

import "golang.org/x/sys/unix"

// ioctl requests for reading and writing terminal attributes. The write
// request drains pending output first (tcsetattr TCSADRAIN).
const (
	ioctlReadTermios  = unix.TIOCGETA
	ioctlWriteTermios = unix.TIOCSETAW
)
