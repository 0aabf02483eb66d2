// Package as implements a process's address space: page-granular
// mappings, the brk heap, and mmap region tracking, grounded on
// biscuit's vm.Vm_t/vm.Userbuf_t (vm/as.go, vm/userbuf.go) and on
// rimmy_kernel's ProcMM (sys/proc/mem.rs) for the brk/mmap cursor
// semantics. Copy-on-write (PTE_COW/PTE_WASCOW in the teacher) is
// intentionally not carried forward: COW is out of scope here.
//
// Because this kernel runs as a portable Go program rather than with
// direct MMU access, the hardware page table walk biscuit performs
// against Pmap_t is replaced by an in-memory page map keyed by virtual
// page number; the mapping *semantics* (permission bits, present bit,
// fault classification) are unchanged.
package as

import (
	"sync"

	"vortex/defs"
	"vortex/frame"
	"vortex/mem"
)

// MmapKind distinguishes an mmap region's ownership, mirroring
// rimmy's MmapKind enum.
type MmapKind int

const (
	Owned  MmapKind = iota // anonymous, backing frames owned by this AS
	Shared                 // file-backed or shared mapping; frames outlive unmap
)

// Region records one tracked mmap extent, as rimmy's MmapRegion does.
type Region struct {
	Base mem.Pa_t // misnomer retained for symmetry; holds a virtual address
	Len  uintptr
	Kind MmapKind
}

const (
	USER_LOWER = 0x40000000
	USER_UPPER = 0x7FFFF0000000

	// PageWritable, PageUser mirror mem.PTE_W/PTE_U for readability at
	// call sites that build permission bitmasks.
	PageWritable = mem.PTE_W
	PageUser     = mem.PTE_U
	PageExec     = 0 // absence of mem.PTE_NX
	PageNX       = mem.PTE_NX
)

type pte struct {
	pa    mem.Pa_t
	flags uintptr
}

// AS is one process's address space.
type AS struct {
	mu sync.Mutex

	alloc frame.Allocator
	pages map[uintptr]pte // virtual page number -> mapping

	HeapStart     uintptr
	BrkCur        uintptr
	MappedHeapEnd uintptr

	mmapHint uintptr
	regions  []Region
}

// New creates an address space with its heap starting at heapStart.
func New(alloc frame.Allocator, heapStart uintptr) *AS {
	return &AS{
		alloc:         alloc,
		pages:         make(map[uintptr]pte),
		HeapStart:     heapStart,
		BrkCur:        heapStart,
		MappedHeapEnd: heapStart,
		mmapHint:      USER_LOWER,
	}
}

func alignUp(v, b uintptr) uintptr   { return (v + b - 1) &^ (b - 1) }
func alignDown(v, b uintptr) uintptr { return v &^ (b - 1) }

// MapPage installs a present mapping for the page containing va,
// backed by a freshly allocated frame, with the given permission flags.
func (a *AS) MapPage(va uintptr, flags uintptr) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mapPageLocked(va, flags)
}

func (a *AS) mapPageLocked(va uintptr, flags uintptr) defs.Err_t {
	vpn := alignDown(va, mem.PGSIZE)
	if _, ok := a.pages[vpn]; ok {
		return 0
	}
	pa, err := a.alloc.AllocPage()
	if err != 0 {
		return err
	}
	a.pages[vpn] = pte{pa: pa, flags: flags | mem.PTE_P}
	return 0
}

// MapKernelBuffer installs a mapping for va pointing at the existing
// physical frame pa, without drawing a fresh frame from the allocator.
// This is how a Shared file-backed mmap is wired up: the VFS node
// already owns the frame (it is the file's actual storage), so the
// page table is made to point at it directly rather than copying its
// contents into a page this address space owns. RemoveMmap's Shared
// handling already knows not to free frames it didn't allocate.
func (a *AS) MapKernelBuffer(va uintptr, pa mem.Pa_t, flags uintptr) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	vpn := alignDown(va, mem.PGSIZE)
	a.pages[vpn] = pte{pa: pa, flags: flags | mem.PTE_P}
	return 0
}

// UnmapPage removes a page's mapping and frees its backing frame.
func (a *AS) UnmapPage(va uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	vpn := alignDown(va, mem.PGSIZE)
	p, ok := a.pages[vpn]
	if !ok {
		return
	}
	delete(a.pages, vpn)
	a.alloc.FreePage(p.pa)
}

// translate resolves va to the backing frame view and offset, failing
// with EFAULT if unmapped or if the access violates the page's
// permission bits. Grounded on vm.Userdmap8_inner.
func (a *AS) translate(va uintptr, wantWrite bool) (*mem.Bytepg_t, uintptr, defs.Err_t) {
	vpn := alignDown(va, mem.PGSIZE)
	p, ok := a.pages[vpn]
	if !ok {
		return nil, 0, defs.EFAULT
	}
	if wantWrite && p.flags&mem.PTE_W == 0 {
		return nil, 0, defs.EFAULT
	}
	return a.alloc.Translate(p.pa), va & mem.PGOFFSET, 0
}

// CopyIn copies n bytes from user address va into dst, the Go-side
// analogue of vm.Vm_t.Userdmap8_inner used by K2user/Userreadn.
func (a *AS) CopyIn(dst []byte, va uintptr) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(dst)
	off := 0
	for off < n {
		pg, poff, err := a.translate(va+uintptr(off), false)
		if err != 0 {
			return err
		}
		c := copy(dst[off:], pg[poff:])
		off += c
	}
	return 0
}

// CopyOut copies src into the user address va, the analogue of
// vm.Vm_t.User2k.
func (a *AS) CopyOut(va uintptr, src []byte) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(src)
	off := 0
	for off < n {
		pg, poff, err := a.translate(va+uintptr(off), true)
		if err != 0 {
			return err
		}
		c := copy(pg[poff:], src[off:])
		off += c
	}
	return 0
}

// Userstr copies a NUL-terminated string from user space, up to max
// bytes, the analogue of vm.Vm_t.Userstr.
func (a *AS) Userstr(va uintptr, max int) (string, defs.Err_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buf := make([]byte, 0, 64)
	for i := 0; i < max; i++ {
		var b [1]byte
		pg, poff, err := a.translate(va+uintptr(i), false)
		if err != 0 {
			return "", err
		}
		b[0] = pg[poff]
		if b[0] == 0 {
			return string(buf), 0
		}
		buf = append(buf, b[0])
	}
	return "", defs.ENAMETOOLONG
}

// SetBrk grows or shrinks the heap to newBrk, mapping or unmapping
// pages as needed. On failure to grow it returns the unchanged current
// break, matching rimmy's ProcMM::set_brk and spec's brk(2) semantics.
func (a *AS) SetBrk(newBrk uintptr) uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if newBrk == 0 || newBrk == a.BrkCur {
		return a.BrkCur
	}
	if newBrk < a.HeapStart {
		return a.BrkCur
	}
	if newBrk > a.BrkCur {
		wantEnd := alignUp(newBrk, mem.PGSIZE)
		for va := a.MappedHeapEnd; va < wantEnd; va += mem.PGSIZE {
			if err := a.mapPageLocked(va, mem.PTE_W|mem.PTE_U); err != 0 {
				return a.BrkCur
			}
			a.MappedHeapEnd = va + mem.PGSIZE
		}
		a.BrkCur = newBrk
		return a.BrkCur
	}
	// Shrinking: unmap whole pages now past the new break.
	wantEnd := alignUp(newBrk, mem.PGSIZE)
	for va := wantEnd; va < a.MappedHeapEnd; va += mem.PGSIZE {
		vpn := alignDown(va, mem.PGSIZE)
		if p, ok := a.pages[vpn]; ok {
			delete(a.pages, vpn)
			a.alloc.FreePage(p.pa)
		}
	}
	a.MappedHeapEnd = wantEnd
	a.BrkCur = newBrk
	return a.BrkCur
}

// ReserveMmap picks the next free virtual range of len bytes above the
// mmap cursor, the analogue of ProcMM::reserve_mmap_range.
func (a *AS) ReserveMmap(length uintptr) (uintptr, defs.Err_t) {
	a.mu.Lock()
	defer a.mu.Unlock()
	length = alignUp(length, mem.PGSIZE)
	if a.mmapHint+length > USER_UPPER {
		return 0, defs.ENOMEM
	}
	base := a.mmapHint
	a.mmapHint += length
	return base, 0
}

// TrackMmap records a region as active, as ProcMM::track_mmap does.
func (a *AS) TrackMmap(base uintptr, length uintptr, kind MmapKind) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.regions = append(a.regions, Region{Base: mem.Pa_t(base), Len: length, Kind: kind})
}

// RemoveMmap finds the region with an exact (base,len) match, unmaps
// its pages, and removes it from tracking, matching munmap's exact
// match requirement (spec §4.5/§8).
func (a *AS) RemoveMmap(base uintptr, length uintptr) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, r := range a.regions {
		if uintptr(r.Base) == base && r.Len == length {
			a.regions = append(a.regions[:i], a.regions[i+1:]...)
			for va := base; va < base+length; va += mem.PGSIZE {
				vpn := alignDown(va, mem.PGSIZE)
				if p, ok := a.pages[vpn]; ok {
					delete(a.pages, vpn)
					if r.Kind == Owned {
						a.alloc.FreePage(p.pa)
					}
				}
			}
			return 0
		}
	}
	return defs.EINVAL
}

// MapFixed installs a mapping for a MAP_FIXED request at exactly base.
func (a *AS) MapFixed(base uintptr, length uintptr, flags uintptr) defs.Err_t {
	a.mu.Lock()
	defer a.mu.Unlock()
	for va := base; va < base+alignUp(length, mem.PGSIZE); va += mem.PGSIZE {
		if err := a.mapPageLocked(va, flags); err != 0 {
			return err
		}
	}
	return 0
}

// MapAnon reserves and maps length bytes of anonymous memory, the
// analogue of mmap's anonymous path in rimmy's syscall/memory.rs.
func (a *AS) MapAnon(length uintptr, writable, exec bool) (uintptr, defs.Err_t) {
	base, err := a.ReserveMmap(length)
	if err != 0 {
		return 0, err
	}
	flags := uintptr(mem.PTE_U)
	if writable {
		flags |= mem.PTE_W
	}
	if err := a.MapFixed(base, length, flags); err != 0 {
		return 0, err
	}
	a.TrackMmap(base, alignUp(length, mem.PGSIZE), Owned)
	return base, 0
}
