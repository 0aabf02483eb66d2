package syscall

import (
	"fmt"
	"strconv"

	"vortex/clock"
	"vortex/defs"
	"vortex/frame"
	"vortex/proc"
	"vortex/trapframe"
	"vortex/vfs"
	"vortex/vfs/profdev"
)

// Dispatcher owns the collaborators every handler needs: the VFS
// router, the process table (for execve/exit bookkeeping), a clock
// source, and a frame allocator (to build a fresh address space for
// execve's loaded image). One Dispatcher serves every process in the
// system, matching rimmy's syscall_handler taking borrowed references
// to shared kernel state rather than owning a copy per process.
type Dispatcher struct {
	Vfs   *vfs.Vfs
	Table *proc.Table
	Clock clock.Source

	// Alloc backs the address space execve builds for the image it
	// loads. Leaving it nil disables execve (-ENOSYS) without affecting
	// any other syscall.
	Alloc frame.Allocator

	// Prof, if set, records a sample per dispatched syscall number for
	// the /dev/prof device to serialize; nil disables profiling with
	// no extra cost per syscall.
	Prof *profdev.Dev
}

// Handle decodes frame's syscall number and arguments, dispatches to
// the matching handler, and writes the result back into frame via
// SetReturn. It never panics on an unknown syscall number, returning
// -ENOSYS instead, matching the default arm of rimmy's dispatch match.
func (d *Dispatcher) Handle(p *proc.Process, frame *trapframe.Frame) {
	no := frame.Syscallno()
	if d.Prof != nil {
		d.Prof.Record("sys_" + strconv.FormatUint(no, 10))
	}
	args := frame.Args()
	ret := d.dispatch(p, frame, no, args)
	frame.SetReturn(int64(ret))
}

func (d *Dispatcher) dispatch(p *proc.Process, frame *trapframe.Frame, no uint64, a [6]uint64) int64 {
	switch no {
	case SYS_READ:
		return d.sysRead(p, int(a[0]), uintptr(a[1]), int(a[2]))
	case SYS_WRITE:
		return d.sysWrite(p, int(a[0]), uintptr(a[1]), int(a[2]))
	case SYS_OPEN:
		return d.sysOpenat(p, defs.AT_FDCWD, uintptr(a[0]), int(a[1]), int(a[2]))
	case SYS_OPENAT:
		return d.sysOpenat(p, int(int32(a[0])), uintptr(a[1]), int(a[2]), int(a[3]))
	case SYS_CLOSE:
		return -int64(p.CloseFd(int(a[0])))
	case SYS_STAT:
		return d.sysStat(p, uintptr(a[0]), uintptr(a[1]))
	case SYS_FSTAT:
		return d.sysFstat(p, int(a[0]), uintptr(a[1]))
	case SYS_READV:
		return d.sysReadv(p, int(a[0]), uintptr(a[1]), int(a[2]))
	case SYS_WRITEV:
		return d.sysWritev(p, int(a[0]), uintptr(a[1]), int(a[2]))
	case SYS_GETDENTS64:
		return d.sysGetdents64(p, int(a[0]), uintptr(a[1]), int(a[2]))
	case SYS_EXECVE:
		return d.sysExecve(p, frame, uintptr(a[0]), uintptr(a[1]), uintptr(a[2]))
	case SYS_LSEEK:
		return d.sysLseek(p, int(a[0]), int64(a[1]), int(a[2]))
	case SYS_MMAP:
		return d.sysMmap(p, uintptr(a[0]), uintptr(a[1]), int(a[2]), int(a[3]), int(a[4]), int64(a[5]))
	case SYS_MPROTECT:
		return 0 // stub, matching rimmy's mprotect()
	case SYS_MUNMAP:
		return -int64(p.AS.RemoveMmap(uintptr(a[0]), uintptr(a[1])))
	case SYS_BRK:
		return int64(p.AS.SetBrk(uintptr(a[0])))
	case SYS_IOCTL:
		return d.sysIoctl(p, int(a[0]), uintptr(a[1]), uintptr(a[2]))
	case SYS_FCNTL:
		return d.sysFcntl(p, int(a[0]), int(a[1]), int(a[2]))
	case SYS_GETCWD:
		return d.sysGetcwd(p, uintptr(a[0]), int(a[1]))
	case SYS_CHDIR:
		return d.sysChdir(p, uintptr(a[0]))
	case SYS_MKDIR:
		return d.sysMkdirat(p, defs.AT_FDCWD, uintptr(a[0]), int(a[1]))
	case SYS_RMDIR:
		return d.sysRmdir(p, uintptr(a[0]))
	case SYS_UNLINK:
		return d.sysUnlink(p, uintptr(a[0]))
	case SYS_EXIT, SYS_EXIT_GROUP:
		return d.sysExit(p, int(int32(a[0])))
	case SYS_UNAME:
		return d.sysUname(p, uintptr(a[0]))
	case SYS_ARCH_PRCTL:
		return d.sysArchPrctl(p, int(a[0]), uintptr(a[1]))
	case SYS_GETPID:
		return int64(p.Pid)
	case SYS_SET_TID_ADDRESS:
		return int64(p.Pid)
	case SYS_TIME:
		return d.sysTime(p, uintptr(a[0]))
	case SYS_CLOCK_GETTIME:
		return d.sysClockGettime(p, int(a[0]), uintptr(a[1]))
	case SYS_NANOSLEEP:
		return 0 // sleep duration honored by the scheduler, not modeled here
	case SYS_POLL:
		return d.sysPoll(p, uintptr(a[0]), int(a[1]), int(a[2]))
	case SYS_PRLIMIT64:
		return d.sysPrlimit64(p, int(int32(a[0])), int(a[1]), uintptr(a[2]), uintptr(a[3]))
	case SYS_UTIMENSAT:
		return d.sysUtimensat(p, int(int32(a[0])), uintptr(a[1]), uintptr(a[2]), int(a[3]))
	default:
		fmt.Printf("syscall: unknown number %d\n", no)
		return int64(-defs.ENOSYS)
	}
}
