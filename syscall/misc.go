package syscall

import (
	"vortex/clock"
	"vortex/defs"
	"vortex/proc"
)

// utsname field width per Linux's struct utsname.
const utsFieldLen = 65

func (d *Dispatcher) sysUname(p *proc.Process, uva uintptr) int64 {
	fields := []string{"vortex", "vortex-host", "0.1.0", "#1", "x86_64", ""}
	buf := make([]byte, utsFieldLen*len(fields))
	for i, f := range fields {
		copy(buf[i*utsFieldLen:], f)
	}
	if err := p.AS.CopyOut(uva, buf); err != 0 {
		return int64(-defs.EFAULT)
	}
	return 0
}

func (d *Dispatcher) sysArchPrctl(p *proc.Process, code int, addr uintptr) int64 {
	switch code {
	case defs.ARCH_SET_FS:
		p.Ctx.FsBase = uint64(addr)
		return 0
	case defs.ARCH_GET_FS:
		var b [8]byte
		putU64(b[:], p.Ctx.FsBase)
		if err := p.AS.CopyOut(addr, b[:]); err != 0 {
			return int64(-defs.EFAULT)
		}
		return 0
	case defs.ARCH_SET_GS:
		p.Ctx.GsBase = uint64(addr)
		return 0
	case defs.ARCH_GET_GS:
		var b [8]byte
		putU64(b[:], p.Ctx.GsBase)
		if err := p.AS.CopyOut(addr, b[:]); err != 0 {
			return int64(-defs.EFAULT)
		}
		return 0
	default:
		return int64(-defs.EINVAL)
	}
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func (d *Dispatcher) sysTime(p *proc.Process, uva uintptr) int64 {
	now := d.Clock.Now(clock.CLOCK_REALTIME)
	if uva != 0 {
		var b [8]byte
		putU64(b[:], uint64(now.Sec))
		if err := p.AS.CopyOut(uva, b[:]); err != 0 {
			return int64(-defs.EFAULT)
		}
	}
	return now.Sec
}

func (d *Dispatcher) sysClockGettime(p *proc.Process, id int, uva uintptr) int64 {
	ts := d.Clock.Now(clock.ClockID(id))
	var b [16]byte
	putU64(b[0:8], uint64(ts.Sec))
	putU64(b[8:16], uint64(ts.Nsec))
	if err := p.AS.CopyOut(uva, b[:]); err != 0 {
		return int64(-defs.EFAULT)
	}
	return 0
}

func (d *Dispatcher) sysExit(p *proc.Process, code int) int64 {
	if resume, ok := d.Table.ResumeAfterExit(p.Pid); ok {
		_ = resume // scheduling handoff is the caller's responsibility
	}
	d.Table.Remove(p.Pid)
	return 0
}

// Rlimit64 mirrors struct rlimit64.
type Rlimit64 struct {
	Cur uint64
	Max uint64
}

const (
	RLIMIT_NOFILE = 7
	RLIMIT_AS     = 9
)

func (d *Dispatcher) sysPrlimit64(p *proc.Process, pid int, resource int, newUva, oldUva uintptr) int64 {
	if pid != 0 && defs.Pid_t(pid) != p.Pid {
		return int64(-defs.ESRCH)
	}
	var cur Rlimit64
	switch resource {
	case RLIMIT_NOFILE:
		cur = Rlimit64{Cur: 1 << 20, Max: 1 << 20}
	case RLIMIT_AS:
		cur = Rlimit64{Cur: ^uint64(0), Max: ^uint64(0)}
	default:
		return int64(-defs.EINVAL)
	}
	if oldUva != 0 {
		var b [16]byte
		putU64(b[0:8], cur.Cur)
		putU64(b[8:16], cur.Max)
		if err := p.AS.CopyOut(oldUva, b[:]); err != 0 {
			return int64(-defs.EFAULT)
		}
	}
	// newUva (setting a limit) is accepted but not enforced: this
	// kernel does not yet impose per-resource ceilings on the budgets
	// it reports here.
	return 0
}
