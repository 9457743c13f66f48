package tty

import "sync/atomic"

// The process-wide resize flag. It is set by the asynchronous resize
// notification source (an OS signal on the byte-stream platform, a
// window-buffer-size input record on the record-oriented one) and cleared by
// exactly one consumer check-and-clear per observation through
// Renderer.Sigwinch. Single writer, single consumer-per-check; no other code
// may touch it. Initialized false at first use and never torn down: a read
// reflects only notifications since the last check-and-clear.
var sigwinch atomic.Bool
