// Package proc implements the process object: its address space, fd
// table, resource cursors, and the context-switch/FPU state a real
// context switch would save and restore. Grounded on rimmy_kernel's
// sys/proc/task.rs (Context, FpuState, task_spinup/switch_tasks) and on
// biscuit's fd.Fd_t/fd.Cwd_t for the fd-table shape.
package proc

// Context is the callee-saved register set preserved across a context
// switch, laid out in exactly the push/pop order task_spinup uses so a
// real switch_tasks implementation can treat this as the stack-saved
// struct it naturally is.
type Context struct {
	CR3           uint64
	R15, R14, R13 uint64
	R12, RBX, RBP uint64
	RIP           uint64

	// FsBase/GsBase are saved and restored around the switch itself
	// (via rdmsr/wrmsr on IA32_FS_BASE/IA32_KERNEL_GS_BASE in the real
	// switch_tasks), not part of the pushed stack frame task_spinup
	// walks, so they live alongside Context rather than inside it.
	FsBase uint64
	GsBase uint64
}

// FpuState mirrors the legacy FXSAVE/FXRSTOR area layout, 16-byte
// aligned in the original; alignment is not meaningful for a Go struct
// that isn't handed to FXSAVE directly; it matters only on a real
// FXSAVE/FXRSTOR path (not part of this tree), where the equivalent
// C-layout struct must be allocated on a 16-byte boundary.
type FpuState struct {
	FCW, FSW, FTW, FOP       uint16
	FIP, FCS, FDP, FDS       uint32
	MXCSR, MXCSRMask         uint32
	MM                       [8][16]byte
	XMM                      [16][16]byte
	pad                      [12]uint64
}

// DefaultFpuState returns the FPU state a freshly created process
// starts with: rounding/exception masks per the legacy default control
// word, and an all-ones XMM bank matching rimmy's FpuState::default
// (used there to make uninitialized SIMD use easy to spot in a
// debugger rather than to convey any architectural meaning).
func DefaultFpuState() FpuState {
	var f FpuState
	f.FCW = 0x037f
	f.MXCSR = 0x1f80
	f.MXCSRMask = 0x037f
	for i := range f.XMM {
		for j := range f.XMM[i] {
			f.XMM[i][j] = 0xff
		}
	}
	return f
}
