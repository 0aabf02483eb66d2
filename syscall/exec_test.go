package syscall

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"vortex/defs"
)

// buildMinimalELF64 assembles a non-PIE ET_EXEC binary with a single
// PT_LOAD segment, just enough for debug/elf.NewFile to parse, mirroring
// elfloader's own test helper since it isn't exported across packages.
func buildMinimalELF64(entry uint64, payload []byte) []byte {
	const (
		ehsize = 64
		phsize = 56
	)
	phoff := uint64(ehsize)
	dataOff := uint64(ehsize + phsize)
	vaddr := uint64(0x400000)

	var b bytes.Buffer
	b.Write([]byte{0x7f, 'E', 'L', 'F', 2, 1, 1, 0})
	b.Write(make([]byte, 8))
	binary.Write(&b, binary.LittleEndian, uint16(2))    // e_type = ET_EXEC
	binary.Write(&b, binary.LittleEndian, uint16(0x3e)) // e_machine = EM_X86_64
	binary.Write(&b, binary.LittleEndian, uint32(1))
	binary.Write(&b, binary.LittleEndian, entry+vaddr)
	binary.Write(&b, binary.LittleEndian, phoff)
	binary.Write(&b, binary.LittleEndian, uint64(0))
	binary.Write(&b, binary.LittleEndian, uint32(0))
	binary.Write(&b, binary.LittleEndian, uint16(ehsize))
	binary.Write(&b, binary.LittleEndian, uint16(phsize))
	binary.Write(&b, binary.LittleEndian, uint16(1))
	binary.Write(&b, binary.LittleEndian, uint16(0))
	binary.Write(&b, binary.LittleEndian, uint16(0))
	binary.Write(&b, binary.LittleEndian, uint16(0))

	binary.Write(&b, binary.LittleEndian, uint32(1)) // p_type = PT_LOAD
	binary.Write(&b, binary.LittleEndian, uint32(7)) // p_flags = RWX
	binary.Write(&b, binary.LittleEndian, dataOff)
	binary.Write(&b, binary.LittleEndian, vaddr)
	binary.Write(&b, binary.LittleEndian, vaddr)
	binary.Write(&b, binary.LittleEndian, uint64(len(payload)))
	binary.Write(&b, binary.LittleEndian, uint64(len(payload)))
	binary.Write(&b, binary.LittleEndian, uint64(0x1000))

	b.Write(payload)
	return b.Bytes()
}

func TestExecveRewritesFrameToNewImage(t *testing.T) {
	d, p := newTestDispatcher(t)

	img := buildMinimalELF64(0, []byte("\x90\x90\x90\x90"))
	require.EqualValues(t, 0, d.Vfs.Touch("/", "prog", 0755))
	node, err := d.Vfs.Open("/prog")
	require.EqualValues(t, 0, err)
	n, werr := node.Write(img, 0)
	require.EqualValues(t, 0, werr)
	require.Equal(t, len(img), n)

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/prog")

	priorPid := p.Pid
	f := frameFor(uint64(SYS_EXECVE), pathVA, 0, 0)
	d.Handle(p, f)
	require.Equal(t, int64(0), f.ReturnValue(), "execve should report success")

	require.Equal(t, uint64(0x400000), f.RIP, "RIP should resume at the new image's entry")
	require.NotZero(t, f.RSP, "RSP should be the freshly built initial stack")
	require.Equal(t, uint64(8), f.RSP%16, "initial stack must satisfy RSP%%16==8")

	require.Equal(t, priorPid, p.Pid, "the caller's own pid is untouched by this non-scheduler execve")
}

func TestExecveMissingPathReturnsENOENT(t *testing.T) {
	d, p := newTestDispatcher(t)

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/does-not-exist")

	f := frameFor(uint64(SYS_EXECVE), pathVA, 0, 0)
	d.Handle(p, f)
	require.Equal(t, int64(-int64(defs.ENOENT)), f.ReturnValue())
}

func TestExecveWithoutAllocIsENOSYS(t *testing.T) {
	d, p := newTestDispatcher(t)
	d.Alloc = nil

	const pathVA = 0x20000000
	writeCString(t, p, pathVA, "/prog")

	f := frameFor(uint64(SYS_EXECVE), pathVA, 0, 0)
	d.Handle(p, f)
	require.Equal(t, int64(-int64(defs.ENOSYS)), f.ReturnValue())
}
