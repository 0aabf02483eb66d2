// Command kernel wires the process runtime's collaborators together:
// a frame allocator, an in-memory root filesystem, a console device,
// and the syscall dispatcher, the same assembly rimmy_kernel's boot
// path performs in Rust and biscuit's src/kernel/main.go performs for
// its own subsystems.
package main

import (
	"fmt"

	"vortex/as"
	"vortex/clock"
	"vortex/frame"
	"vortex/proc"
	"vortex/syscall"
	"vortex/ustr"
	"vortex/vfs"
	"vortex/vfs/memfs"
	"vortex/vfs/profdev"
	"vortex/vfs/tty"
)

const initHeapStart = 0x10000000

func main() {
	fmt.Println("vortex: process runtime starting")

	alloc := frame.NewBitmap(0, 4096)
	fs := memfs.New(alloc)
	v := vfs.New()
	v.Mount("/", fs)

	console := tty.New()
	prof := profdev.New()

	table := proc.NewTable()
	dispatcher := &syscall.Dispatcher{
		Vfs:   v,
		Table: table,
		Clock: clock.NewSystem(),
		Alloc: alloc,
		Prof:  prof,
	}

	pid := table.Alloc()
	aspace := as.New(alloc, initHeapStart)
	init := proc.New(pid, 0, aspace, ustr.MkUstrRoot(), console, console, console)
	table.Add(init)

	_ = dispatcher
	fmt.Println("vortex: init process installed, pid", init.Pid)
}
