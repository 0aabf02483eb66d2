package elfloader

import (
	"bytes"
	"encoding/binary"
	"testing"

	"vortex/as"
	"vortex/frame"
)

// buildMinimalELF64 assembles a non-PIE ET_EXEC binary with a single
// PT_LOAD segment, just enough for debug/elf.NewFile to parse.
func buildMinimalELF64(entry uint64, payload []byte) []byte {
	const (
		ehsize = 64
		phsize = 56
	)
	phoff := uint64(ehsize)
	dataOff := uint64(ehsize + phsize)
	vaddr := uint64(0x400000)

	var b bytes.Buffer
	// e_ident
	b.Write([]byte{0x7f, 'E', 'L', 'F', 2 /*64-bit*/, 1 /*LE*/, 1 /*version*/, 0})
	b.Write(make([]byte, 8)) // pad
	binary.Write(&b, binary.LittleEndian, uint16(2))       // e_type = ET_EXEC
	binary.Write(&b, binary.LittleEndian, uint16(0x3e))    // e_machine = EM_X86_64
	binary.Write(&b, binary.LittleEndian, uint32(1))       // e_version
	binary.Write(&b, binary.LittleEndian, entry+vaddr)     // e_entry
	binary.Write(&b, binary.LittleEndian, phoff)           // e_phoff
	binary.Write(&b, binary.LittleEndian, uint64(0))       // e_shoff
	binary.Write(&b, binary.LittleEndian, uint32(0))       // e_flags
	binary.Write(&b, binary.LittleEndian, uint16(ehsize))  // e_ehsize
	binary.Write(&b, binary.LittleEndian, uint16(phsize))  // e_phentsize
	binary.Write(&b, binary.LittleEndian, uint16(1))       // e_phnum
	binary.Write(&b, binary.LittleEndian, uint16(0))       // e_shentsize
	binary.Write(&b, binary.LittleEndian, uint16(0))       // e_shnum
	binary.Write(&b, binary.LittleEndian, uint16(0))       // e_shstrndx

	// program header: PT_LOAD
	binary.Write(&b, binary.LittleEndian, uint32(1))              // p_type = PT_LOAD
	binary.Write(&b, binary.LittleEndian, uint32(7))               // p_flags = RWX
	binary.Write(&b, binary.LittleEndian, dataOff)                 // p_offset
	binary.Write(&b, binary.LittleEndian, vaddr)                   // p_vaddr
	binary.Write(&b, binary.LittleEndian, vaddr)                   // p_paddr
	binary.Write(&b, binary.LittleEndian, uint64(len(payload)))    // p_filesz
	binary.Write(&b, binary.LittleEndian, uint64(len(payload)))    // p_memsz
	binary.Write(&b, binary.LittleEndian, uint64(0x1000))          // p_align

	b.Write(payload)
	return b.Bytes()
}

func TestLoadMapsSegmentAndEntry(t *testing.T) {
	payload := []byte("\x90\x90\x90\x90") // nops
	img := buildMinimalELF64(0, payload)

	alloc := frame.NewBitmap(0, 64)
	aspace := as.New(alloc, 0x10000000)

	r := bytes.NewReader(img)
	loaded, err := Load(aspace, r)
	if err != 0 {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Entry != 0x400000 {
		t.Errorf("entry = %#x, want %#x", loaded.Entry, 0x400000)
	}
	got := make([]byte, len(payload))
	if cerr := aspace.CopyIn(got, 0x400000); cerr != 0 {
		t.Fatalf("segment not mapped: %v", cerr)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("segment contents = %x, want %x", got, payload)
	}
}
