// Package tty implements a VFS node for the console device, grounded
// on rimmy_kernel's driver/console (tty.rs) acting as a VfsNodeOps
// implementor, and on biscuit's D_CONSOLE device convention.
package tty

import (
	"sync"

	"vortex/defs"
	"vortex/vfs"
)

// TTY is a console device node. Input arrives via PutInput (the
// interrupt handler's hand-off in a real kernel); Read returns whatever
// bytes are buffered as soon as there is at least one, with no line
// buffering. With no input, Read blocks, or returns EAGAIN when
// SetNonblock(true) is in effect.
type TTY struct {
	vfs.NopMmap
	mu      sync.Mutex
	cond    *sync.Cond
	in      []byte
	out     []byte
	nonblk  bool
}

// New returns a TTY with no buffered input.
func New() *TTY {
	t := &TTY{}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// PutInput appends bytes received from the keyboard/serial interrupt
// path and wakes any blocked reader.
func (t *TTY) PutInput(b []byte) {
	t.mu.Lock()
	t.in = append(t.in, b...)
	t.cond.Broadcast()
	t.mu.Unlock()
}

// SetNonblock controls whether Read treats an empty input buffer as
// EAGAIN (non-blocking) or waits for input (blocking). Poll is not
// affected: it reports no readiness while the buffer is empty either way.
func (t *TTY) SetNonblock(v bool) {
	t.mu.Lock()
	t.nonblk = v
	t.mu.Unlock()
}

func (t *TTY) Read(buf []byte, off int64) (int, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for len(t.in) == 0 {
		if t.nonblk {
			return 0, defs.EAGAIN
		}
		t.cond.Wait()
	}
	n := copy(buf, t.in)
	t.in = t.in[n:]
	return n, 0
}

func (t *TTY) Write(buf []byte, off int64) (int, defs.Err_t) {
	t.mu.Lock()
	t.out = append(t.out, buf...)
	t.mu.Unlock()
	return len(buf), 0
}

func (t *TTY) Poll(events int) (int, defs.Err_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.in) > 0 {
		return events, 0
	}
	return 0, 0
}

func (t *TTY) Ioctl(cmd uintptr, arg uintptr) (uintptr, defs.Err_t) {
	return 0, defs.ENOSYS
}

func (t *TTY) Unlink() defs.Err_t { return defs.EPERM }

func (t *TTY) Metadata() vfs.Metadata {
	return vfs.Metadata{Ino: 0, Name: "console", Type: vfs.CharDevice}
}

// Output returns and clears everything written to the console so far,
// a test hook standing in for the real framebuffer/serial sink.
func (t *TTY) Output() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.out
	t.out = nil
	return b
}
