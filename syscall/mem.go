package syscall

import (
	"vortex/as"
	"vortex/defs"
	"vortex/mem"
	"vortex/proc"
)

// sysMmap implements mmap(2)'s anonymous and MAP_FIXED paths, per
// rimmy's memory.rs mmap(); file-backed mappings delegate to the
// node's own Mmap hook, which EOPNOTSUPPs unless the node overrides it.
func (d *Dispatcher) sysMmap(p *proc.Process, addr uintptr, length uintptr, prot, flags, fd int, off int64) int64 {
	if length == 0 {
		return int64(-defs.EINVAL)
	}
	if off%mem.PGSIZE != 0 {
		return int64(-defs.EINVAL)
	}

	writable := prot&defs.PROT_WRITE != 0
	exec := prot&defs.PROT_EXEC != 0
	_ = exec

	isAnon := flags&defs.MAP_ANONYMOUS != 0
	isFixed := flags&defs.MAP_FIXED != 0
	if isFixed && (addr == 0 || addr%mem.PGSIZE != 0) {
		return int64(-defs.EINVAL)
	}

	if isFixed && isAnon {
		permFlags := uintptr(0)
		if writable {
			permFlags |= as.PageWritable
		}
		permFlags |= as.PageUser
		if err := p.AS.MapFixed(addr, length, permFlags); err != 0 {
			return int64(-err)
		}
		p.AS.TrackMmap(addr, length, as.Owned)
		return int64(addr)
	}

	if !isAnon {
		if fd < 3 {
			return int64(-defs.EBADF)
		}
		ent, err := p.FdSlot(fd)
		if err != 0 {
			return int64(-err)
		}
		frames, merr := ent.File.Node.Mmap(int64(length), prot, flags, off)
		if merr != 0 {
			return int64(-merr)
		}
		base := addr
		if !isFixed {
			var rerr defs.Err_t
			base, rerr = p.AS.ReserveMmap(length)
			if rerr != 0 {
				return int64(-rerr)
			}
		}
		permFlags := uintptr(as.PageUser)
		if writable {
			permFlags |= as.PageWritable
		}
		for i, pa := range frames {
			va := base + uintptr(i)*mem.PGSIZE
			if kerr := p.AS.MapKernelBuffer(va, mem.Pa_t(pa), permFlags); kerr != 0 {
				return int64(-kerr)
			}
		}
		p.AS.TrackMmap(base, length, as.Shared)
		return int64(base)
	}

	va, err := p.AS.MapAnon(length, writable, exec)
	if err != 0 {
		return int64(-err)
	}
	return int64(va)
}
