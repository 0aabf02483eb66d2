// Package ustack builds the initial user stack image for a freshly
// exec'd process: argv/envp string tables, the auxv vector, and the
// pointer arrays referencing them, per the System V AMD64 psABI initial
// process stack layout. Grounded on rimmy_kernel's exec path (which
// computes USER_STACK_TOP/USER_STACK_SIZE in sys/proc/mod.rs) and on
// biscuit's vm.Vm_t.K2user for the underlying user-memory writes.
package ustack

import (
	"vortex/as"
	"vortex/defs"
)

const (
	StackTop  = 0x00007FFFFFFFF000
	StackSize = 0x64000

	AT_NULL     = 0
	AT_PHDR     = 3
	AT_PHENT    = 4
	AT_PHNUM    = 5
	AT_BASE     = 7
	AT_ENTRY    = 9
	AT_PAGESZ   = 6
	AT_UID      = 11
	AT_EUID     = 12
	AT_GID      = 13
	AT_EGID     = 14
	AT_CLKTCK   = 17
	AT_RANDOM   = 25
	AT_EXECFN   = 31
)

// Auxv is one (type, value) pair in the auxiliary vector.
type Auxv struct {
	Type  uint64
	Value uint64
}

// Params carries everything the stack builder needs beyond the already
// loaded image's entry point and program-header location.
type Params struct {
	Argv       []string
	Envp       []string
	PHdrVA     uint64
	PHEntSz    uint64
	PHNum      uint64
	Base       uint64 // AT_BASE: interpreter load base when one was loaded, 0 otherwise
	Entry      uint64
	Random     [16]byte
	Execfn     string
	UID, EUID  uint64
	GID, EGID  uint64
}

// Build writes the initial stack image into aspace at StackTop and
// returns the resulting initial RSP, which satisfies RSP%16==8 at the
// point SYSRET/IRETQ would hand control to _start, per the psABI stack
// layout (argc, argv[], NULL, envp[], NULL, auxv[], NULL, strings).
func Build(aspace *as.AS, p Params) (uintptr, defs.Err_t) {
	top := uintptr(StackTop)
	base := top - StackSize
	for va := base; va < top; va += 0x1000 {
		if err := aspace.MapPage(va, as.PageWritable|as.PageUser); err != 0 {
			return 0, err
		}
	}

	// Strings grow down from the top; record their placed addresses so
	// the pointer arrays below can reference them.
	sp := top
	writeStr := func(s string) (uintptr, defs.Err_t) {
		b := append([]byte(s), 0)
		sp -= uintptr(len(b))
		if err := aspace.CopyOut(sp, b); err != 0 {
			return 0, err
		}
		return sp, 0
	}

	execfnPtr, err := writeStr(p.Execfn)
	if err != 0 {
		return 0, err
	}
	randomPtr := sp - 16
	sp = randomPtr
	if err := aspace.CopyOut(sp, p.Random[:]); err != 0 {
		return 0, err
	}

	envPtrs := make([]uintptr, len(p.Envp))
	for i := len(p.Envp) - 1; i >= 0; i-- {
		ptr, err := writeStr(p.Envp[i])
		if err != 0 {
			return 0, err
		}
		envPtrs[i] = ptr
	}
	argPtrs := make([]uintptr, len(p.Argv))
	for i := len(p.Argv) - 1; i >= 0; i-- {
		ptr, err := writeStr(p.Argv[i])
		if err != 0 {
			return 0, err
		}
		argPtrs[i] = ptr
	}

	// Align down to 16 bytes before laying out the pointer arrays; the
	// padding below then makes the final push of argc leave RSP%16==8
	// at process entry.
	sp = sp &^ 0xf

	auxv := []Auxv{
		{AT_PHDR, p.PHdrVA},
		{AT_PHENT, p.PHEntSz},
		{AT_PHNUM, p.PHNum},
		{AT_BASE, p.Base},
		{AT_ENTRY, p.Entry},
		{AT_PAGESZ, 0x1000},
		{AT_UID, p.UID},
		{AT_EUID, p.EUID},
		{AT_GID, p.GID},
		{AT_EGID, p.EGID},
		{AT_CLKTCK, 100},
		{AT_RANDOM, uint64(randomPtr)},
		{AT_EXECFN, uint64(execfnPtr)},
		{AT_NULL, 0},
	}

	// Total bytes pushed below sp: argc(8) + argv ptrs + NULL(8) +
	// envp ptrs + NULL(8) + auxv pairs(16 each). The psABI requires
	// RSP%16==8 at process entry (there is no call-pushed return address
	// the way a normal function entry gets one), not RSP%16==0; sp here
	// is 16-aligned, so padding is needed exactly when the pushed total
	// is itself a multiple of 16 — otherwise the unpadded total already
	// lands the final RSP at the required %16==8.
	total := 8 + 8*len(argPtrs) + 8 + 8*len(envPtrs) + 8 + 16*len(auxv)
	if total%16 == 0 {
		sp -= 8
	}

	writeU64 := func(v uint64) defs.Err_t {
		sp -= 8
		var b [8]byte
		putU64(b[:], v)
		return aspace.CopyOut(sp, b[:])
	}

	for i := len(auxv) - 1; i >= 0; i-- {
		if err := writeU64(auxv[i].Value); err != 0 {
			return 0, err
		}
		if err := writeU64(auxv[i].Type); err != 0 {
			return 0, err
		}
	}
	if err := writeU64(0); err != 0 { // envp NULL terminator
		return 0, err
	}
	for i := len(envPtrs) - 1; i >= 0; i-- {
		if err := writeU64(uint64(envPtrs[i])); err != 0 {
			return 0, err
		}
	}
	if err := writeU64(0); err != 0 { // argv NULL terminator
		return 0, err
	}
	for i := len(argPtrs) - 1; i >= 0; i-- {
		if err := writeU64(uint64(argPtrs[i])); err != 0 {
			return 0, err
		}
	}
	if err := writeU64(uint64(len(p.Argv))); err != 0 { // argc
		return 0, err
	}

	return sp, 0
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
