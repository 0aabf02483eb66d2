// Package fault decodes the instruction at a trap frame's RIP for
// diagnostic messages on an unhandled fault (general protection fault,
// invalid opcode, unresolved page fault), using
// golang.org/x/arch/x86/x86asm the way a debugger would rather than
// hand-rolling an x86_64 decoder.
package fault

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Describe decodes the instruction at the start of code (the bytes
// read from the faulting RIP) and formats it for a panic/log message.
// If the bytes don't decode to a valid instruction, it reports that
// instead of guessing.
func Describe(rip uint64, code []byte) string {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return fmt.Sprintf("rip=%#x <undecodable: %v>", rip, err)
	}
	return fmt.Sprintf("rip=%#x %s", rip, x86asm.GNUSyntax(inst, rip, nil))
}

// Classify reports the short mnemonic of the faulting instruction,
// used to decide whether a fault handler should retry (e.g. a
// misaligned SSE load) or deliver SIGSEGV-equivalent termination.
func Classify(code []byte) (x86asm.Op, bool) {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return 0, false
	}
	return inst.Op, true
}
