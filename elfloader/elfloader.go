// Package elfloader loads an ELF64 executable into a process's address
// space, including PIE relocation bias and dynamic-interpreter
// chaining, per rimmy_kernel's Elf64Ehdr/Elf64Phdr handling
// (sys/proc/mod.rs) and biscuit's idiomatic use of the standard
// library's debug/elf (src/kernel/chentry.go loads ELF the same way).
package elfloader

import (
	"bytes"
	"debug/elf"
	"io"

	"vortex/as"
	"vortex/defs"
	"vortex/mem"
)

const (
	MAIN_DYN_LOAD_BASE   = 0x40000000
	INTERP_DYN_LOAD_BASE = 0x60000000
)

// Image describes everything the initial-stack builder and context
// setup need after a successful load.
type Image struct {
	Entry    uintptr
	PHdrVA   uintptr
	PHEntSz  uint16
	PHNum    uint16
	Base     uintptr // relocation bias applied to PIE segments
	Interp   string  // PT_INTERP requested path, "" if none
}

// Load maps an ELF64 executable's PT_LOAD segments into aspace and
// returns the resulting Image. If the binary carries a PT_INTERP
// segment, the interpreter path is returned in Image.Interp and the
// caller is expected to load the interpreter itself with LoadInterp
// (at INTERP_DYN_LOAD_BASE), start execution at the interpreter's
// entry, set AT_BASE to the interpreter's load base, and keep AT_ENTRY
// pointing at this image's entry — matching the ELF
// interpreter-chaining contract described in rimmy's process setup.
func Load(aspace *as.AS, r io.ReaderAt) (Image, defs.Err_t) {
	return loadAt(aspace, r, MAIN_DYN_LOAD_BASE)
}

// LoadInterp loads a dynamic interpreter (e.g. ld.so) at the fixed
// base rimmy reserves for it.
func LoadInterp(aspace *as.AS, r io.ReaderAt) (Image, defs.Err_t) {
	return loadAt(aspace, r, INTERP_DYN_LOAD_BASE)
}

func loadAt(aspace *as.AS, r io.ReaderAt, loadBase uintptr) (Image, defs.Err_t) {
	f, err := elf.NewFile(r)
	if err != nil {
		return Image{}, defs.ENOENT
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_X86_64 {
		return Image{}, defs.ENOEXEC
	}

	var bias uintptr
	isPIE := f.Type == elf.ET_DYN
	if isPIE {
		bias = loadBase
	}

	var phdrVA uintptr
	var phEntSz uint16
	var phNum uint16
	var interp string
	var phdrInLoad uintptr
	phoff := uint64(elfHeaderSize(f))

	for _, p := range f.Progs {
		switch p.Type {
		case elf.PT_LOAD:
			if err := mapSegment(aspace, p, bias); err != 0 {
				return Image{}, err
			}
			if phdrInLoad == 0 && p.Off <= phoff && phoff < p.Off+p.Filesz {
				phdrInLoad = uintptr(p.Vaddr+(phoff-p.Off)) + bias
			}
		case elf.PT_INTERP:
			buf := make([]byte, p.Filesz)
			if _, err := p.ReadAt(buf, 0); err != nil {
				return Image{}, defs.EIO
			}
			interp = string(bytes.TrimRight(buf, "\x00"))
		case elf.PT_PHDR:
			phdrVA = uintptr(p.Vaddr) + bias
		}
	}

	if phdrVA == 0 {
		// No PT_PHDR segment: the program headers are taken to follow
		// the ELF header directly, so AT_PHDR is derived from the
		// PT_LOAD segment whose file range covers that offset (0 if no
		// segment does).
		phdrVA = phdrInLoad
	}
	phEntSz = uint16(programHeaderEntSize(f))
	phNum = uint16(len(f.Progs))

	return Image{
		Entry:   uintptr(f.Entry) + bias,
		PHdrVA:  phdrVA,
		PHEntSz: phEntSz,
		PHNum:   phNum,
		Base:    bias,
		Interp:  interp,
	}, 0
}

func mapSegment(aspace *as.AS, p *elf.Prog, bias uintptr) defs.Err_t {
	vaStart := uintptr(p.Vaddr) + bias
	vaEnd := vaStart + uintptr(p.Memsz)
	pageStart := vaStart &^ (mem.PGSIZE - 1)
	pageEnd := (vaEnd + mem.PGSIZE - 1) &^ (mem.PGSIZE - 1)

	// Every PT_LOAD page is mapped writable here regardless of the
	// segment's own permission bits, so the loader can CopyOut the file
	// contents below; stripping W from read-only/executable segments
	// once loading is complete is a hardening pass this kernel doesn't
	// perform (non-goal).
	flags := uintptr(mem.PTE_U | mem.PTE_W)

	for va := pageStart; va < pageEnd; va += mem.PGSIZE {
		if err := aspace.MapPage(va, flags); err != 0 {
			return err
		}
	}

	buf := make([]byte, p.Filesz)
	if p.Filesz > 0 {
		if _, err := p.ReadAt(buf, 0); err != nil && err != io.EOF {
			return defs.EIO
		}
	}
	if err := aspace.CopyOut(vaStart, buf); err != 0 {
		return err
	}
	return 0
}

func elfHeaderSize(f *elf.File) int {
	if f.Class == elf.ELFCLASS64 {
		return 64
	}
	return 52
}

func programHeaderEntSize(f *elf.File) int {
	if f.Class == elf.ELFCLASS64 {
		return 56
	}
	return 32
}
