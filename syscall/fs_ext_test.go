package syscall

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vortex/as"
	"vortex/defs"
)

func TestStatReportsFileMetadata(t *testing.T) {
	d, p := newTestDispatcher(t)

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/greeting.txt")
	f := frameFor(uint64(SYS_OPENAT), uint64(defs.AT_FDCWD), pathVA, uint64(defs.O_CREAT|defs.O_RDWR), 0644)
	d.Handle(p, f)
	fd := f.ReturnValue()
	require.GreaterOrEqual(t, fd, int64(3))

	msg := "contents"
	const bufVA = 0x20001000
	writeCString(t, p, bufVA, msg)
	wf := frameFor(uint64(SYS_WRITE), uint64(fd), bufVA, uint64(len(msg)))
	d.Handle(p, wf)
	require.Equal(t, int64(len(msg)), wf.ReturnValue())

	const statVA = 0x20002000
	require.EqualValues(t, 0, p.AS.MapPage(statVA, as.PageWritable|as.PageUser))
	sf := frameFor(uint64(SYS_STAT), pathVA, statVA)
	d.Handle(p, sf)
	require.Equal(t, int64(0), sf.ReturnValue())
}

func TestGetdents64ListsDirectoryEntries(t *testing.T) {
	d, p := newTestDispatcher(t)
	require.EqualValues(t, 0, d.Vfs.Touch("/", "a.txt", 0644))
	require.EqualValues(t, 0, d.Vfs.Touch("/", "b.txt", 0644))

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/")
	f := frameFor(uint64(SYS_OPENAT), uint64(defs.AT_FDCWD), pathVA, uint64(defs.O_RDONLY|defs.O_DIRECTORY), 0)
	d.Handle(p, f)
	fd := f.ReturnValue()
	require.GreaterOrEqual(t, fd, int64(3))

	const bufVA = 0x20001000
	require.EqualValues(t, 0, p.AS.MapPage(bufVA, as.PageWritable|as.PageUser))
	gf := frameFor(uint64(SYS_GETDENTS64), uint64(fd), bufVA, 4096)
	d.Handle(p, gf)
	require.Greater(t, gf.ReturnValue(), int64(0), "getdents64 should report bytes written for two entries")

	// A second call with no more entries should report zero, not repeat.
	gf2 := frameFor(uint64(SYS_GETDENTS64), uint64(fd), bufVA, 4096)
	d.Handle(p, gf2)
	require.Equal(t, int64(0), gf2.ReturnValue())
}

func TestReadvWritevRoundTrip(t *testing.T) {
	d, p := newTestDispatcher(t)

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/iovtest.txt")
	f := frameFor(uint64(SYS_OPENAT), uint64(defs.AT_FDCWD), pathVA, uint64(defs.O_CREAT|defs.O_RDWR), 0644)
	d.Handle(p, f)
	fd := f.ReturnValue()
	require.GreaterOrEqual(t, fd, int64(3))

	part1, part2 := "hello, ", "vortex"
	const buf1VA, buf2VA = uintptr(0x20001000), uintptr(0x20002000)
	writeCString(t, p, buf1VA, part1)
	writeCString(t, p, buf2VA, part2)

	const iovVA = 0x20003000
	require.EqualValues(t, 0, p.AS.MapPage(iovVA, as.PageWritable|as.PageUser))
	iov := make([]byte, 32)
	putU64(iov[0:8], uint64(buf1VA))
	putU64(iov[8:16], uint64(len(part1)))
	putU64(iov[16:24], uint64(buf2VA))
	putU64(iov[24:32], uint64(len(part2)))
	require.EqualValues(t, 0, p.AS.CopyOut(iovVA, iov))

	wf := frameFor(uint64(SYS_WRITEV), uint64(fd), iovVA, 2)
	d.Handle(p, wf)
	require.Equal(t, int64(len(part1)+len(part2)), wf.ReturnValue())

	d.sysLseek(p, int(fd), 0, defs.SEEK_SET)

	const readBuf1VA, readBuf2VA = uintptr(0x20004000), uintptr(0x20005000)
	require.EqualValues(t, 0, p.AS.MapPage(readBuf1VA, as.PageWritable|as.PageUser))
	require.EqualValues(t, 0, p.AS.MapPage(readBuf2VA, as.PageWritable|as.PageUser))
	readIov := make([]byte, 32)
	putU64(readIov[0:8], uint64(readBuf1VA))
	putU64(readIov[8:16], uint64(len(part1)))
	putU64(readIov[16:24], uint64(readBuf2VA))
	putU64(readIov[24:32], uint64(len(part2)))
	require.EqualValues(t, 0, p.AS.CopyOut(iovVA, readIov))

	rf := frameFor(uint64(SYS_READV), uint64(fd), iovVA, 2)
	d.Handle(p, rf)
	require.Equal(t, int64(len(part1)+len(part2)), rf.ReturnValue())

	got1 := make([]byte, len(part1))
	require.EqualValues(t, 0, p.AS.CopyIn(got1, readBuf1VA))
	require.Equal(t, part1, string(got1))

	got2 := make([]byte, len(part2))
	require.EqualValues(t, 0, p.AS.CopyIn(got2, readBuf2VA))
	require.Equal(t, part2, string(got2))
}
