package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vortex/as"
	"vortex/clock"
	"vortex/defs"
	"vortex/frame"
	"vortex/proc"
	"vortex/trapframe"
	"vortex/ustr"
	"vortex/vfs"
	"vortex/vfs/memfs"
	"vortex/vfs/tty"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *proc.Process) {
	t.Helper()
	alloc := frame.NewBitmap(0, 1024)
	aspace := as.New(alloc, 0x10000000)

	fs := memfs.New(alloc)
	v := vfs.New()
	v.Mount("/", fs)

	console := tty.New()
	table := proc.NewTable()
	p := proc.New(table.Alloc(), 0, aspace, ustr.MkUstrRoot(), console, console, console)
	table.Add(p)

	d := &Dispatcher{
		Vfs:   v,
		Table: table,
		Clock: clock.Fake{Real: clock.Timespec{Sec: 1700000000}, Mono: clock.Timespec{Sec: 42}},
		Alloc: alloc,
	}
	return d, p
}

// frameFor builds a trapframe.Frame encoding a syscall call with up to
// six arguments, the way the SYSCALL trampoline's register push would.
func frameFor(no uint64, a ...uint64) *trapframe.Frame {
	var args [6]uint64
	copy(args[:], a)
	return &trapframe.Frame{Regs: trapframe.Registers{
		RAX: no, RDI: args[0], RSI: args[1], RDX: args[2], R10: args[3], R8: args[4], R9: args[5],
	}}
}

func writeCString(t *testing.T, p *proc.Process, va uintptr, s string) {
	t.Helper()
	require.EqualValues(t, 0, p.AS.MapPage(va, as.PageWritable|as.PageUser))
	require.EqualValues(t, 0, p.AS.CopyOut(va, append([]byte(s), 0)))
}

func TestOpenWriteReadRoundTrip(t *testing.T) {
	d, p := newTestDispatcher(t)

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/greeting.txt")

	f := frameFor(uint64(SYS_OPENAT), uint64(defs.AT_FDCWD), pathVA, uint64(defs.O_CREAT|defs.O_RDWR), 0644)
	d.Handle(p, f)
	fd := f.ReturnValue()
	require.GreaterOrEqual(t, fd, int64(3), "openat should return a valid fd")

	const bufVA = 0x20001000
	msg := "hello, vortex"
	writeCString(t, p, bufVA, msg)

	wf := frameFor(uint64(SYS_WRITE), uint64(fd), bufVA, uint64(len(msg)))
	d.Handle(p, wf)
	require.Equal(t, int64(len(msg)), wf.ReturnValue())

	// Reset seek to the start before reading back.
	d.sysLseek(p, int(fd), 0, defs.SEEK_SET)

	const readVA = 0x20002000
	require.EqualValues(t, 0, p.AS.MapPage(readVA, as.PageWritable|as.PageUser))
	rf := frameFor(uint64(SYS_READ), uint64(fd), readVA, uint64(len(msg)))
	d.Handle(p, rf)
	require.Equal(t, int64(len(msg)), rf.ReturnValue())

	got := make([]byte, len(msg))
	require.EqualValues(t, 0, p.AS.CopyIn(got, readVA))
	require.Equal(t, msg, string(got))
}

func TestBrkGrowReportsNewBreak(t *testing.T) {
	d, p := newTestDispatcher(t)
	start := p.AS.BrkCur
	f := frameFor(uint64(SYS_BRK), uint64(start+0x3000))
	d.Handle(p, f)
	require.Equal(t, int64(start+0x3000), f.ReturnValue())
}

func TestUnknownSyscallReturnsENOSYS(t *testing.T) {
	d, p := newTestDispatcher(t)
	f := frameFor(999999)
	d.Handle(p, f)
	require.Equal(t, int64(-int64(defs.ENOSYS)), f.ReturnValue())
}
