package syscall

import (
	"time"

	"vortex/clock"
	"vortex/defs"
	"vortex/proc"
)

// sysRead implements read(2): copy up to count bytes from fd's current
// seek position into the user buffer at uva, advancing the seek
// position by the amount actually read.
func (d *Dispatcher) sysRead(p *proc.Process, fd int, uva uintptr, count int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	off := ent.File.GetSeek()

	buf := make([]byte, count)
	n, rerr := ent.File.Node.Read(buf, off)
	if rerr != 0 {
		return int64(-rerr)
	}
	if n > 0 {
		if werr := p.AS.CopyOut(uva, buf[:n]); werr != 0 {
			return int64(-defs.EFAULT)
		}
	}
	ent.File.AddSeek(int64(n))
	return int64(n)
}

// sysWrite implements write(2), honoring O_APPEND by reseeking to the
// node's current size before each write when set.
func (d *Dispatcher) sysWrite(p *proc.Process, fd int, uva uintptr, count int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	buf := make([]byte, count)
	if rerr := p.AS.CopyIn(buf, uva); rerr != 0 {
		return int64(-defs.EFAULT)
	}

	off := ent.File.GetSeek()
	if ent.File.GetStatusFlags()&defs.O_APPEND != 0 {
		off = ent.File.Node.Metadata().Size
	}

	n, werr := ent.File.Node.Write(buf, off)
	if werr != 0 {
		return int64(-werr)
	}
	ent.File.SetSeek(off + int64(n))
	return int64(n)
}

func (d *Dispatcher) sysLseek(p *proc.Process, fd int, offset int64, whence int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	var newOff int64
	switch whence {
	case defs.SEEK_SET:
		newOff = offset
	case defs.SEEK_CUR:
		newOff = ent.File.GetSeek() + offset
	case defs.SEEK_END:
		newOff = ent.File.Node.Metadata().Size + offset
	default:
		return int64(-defs.EINVAL)
	}
	if newOff < 0 {
		return int64(-defs.EINVAL)
	}
	ent.File.SetSeek(newOff)
	return newOff
}

func (d *Dispatcher) sysIoctl(p *proc.Process, fd int, cmd uintptr, arg uintptr) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	_, ierr := ent.File.Node.Ioctl(cmd, arg)
	return int64(-ierr)
}

func (d *Dispatcher) sysFcntl(p *proc.Process, fd int, cmd int, arg int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	switch cmd {
	case defs.F_GETFD:
		return int64(ent.FdFlags)
	case defs.F_SETFD:
		ent.FdFlags = arg & proc.FD_CLOEXEC
		return 0
	case defs.F_GETFL:
		return int64(ent.File.GetStatusFlags())
	case defs.F_SETFL:
		mask := defs.MutableStatusMask()
		cur := ent.File.GetStatusFlags()
		ent.File.SetStatusFlags((cur &^ mask) | (arg & mask))
		return 0
	case defs.F_DUPFD:
		dup := &proc.FdEntry{File: ent.File}
		newfd, ierr := p.InstallFdEntry(dup, arg)
		if ierr != 0 {
			return int64(-ierr)
		}
		return int64(newfd)
	default:
		return int64(-defs.EINVAL)
	}
}

// sysReadv implements readv(2): fills each iovec in turn from fd's
// current seek position, advancing the seek position by the total
// bytes actually read, the vectorized counterpart to sysRead.
func (d *Dispatcher) sysReadv(p *proc.Process, fd int, iovUva uintptr, iovcnt int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	off := ent.File.GetSeek()
	var total int64
	for i := 0; i < iovcnt; i++ {
		base, length, ierr := readIovec(p, iovUva, i)
		if ierr != 0 {
			return int64(-ierr)
		}
		if length == 0 {
			continue
		}
		buf := make([]byte, length)
		n, rerr := ent.File.Node.Read(buf, off+total)
		if rerr != 0 {
			return int64(-rerr)
		}
		if n > 0 {
			if werr := p.AS.CopyOut(base, buf[:n]); werr != 0 {
				return int64(-defs.EFAULT)
			}
		}
		total += int64(n)
		if n < length {
			break
		}
	}
	ent.File.AddSeek(total)
	return total
}

// sysWritev implements writev(2), the vectorized counterpart to
// sysWrite, honoring O_APPEND the same way.
func (d *Dispatcher) sysWritev(p *proc.Process, fd int, iovUva uintptr, iovcnt int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	off := ent.File.GetSeek()
	if ent.File.GetStatusFlags()&defs.O_APPEND != 0 {
		off = ent.File.Node.Metadata().Size
	}
	var total int64
	for i := 0; i < iovcnt; i++ {
		base, length, ierr := readIovec(p, iovUva, i)
		if ierr != 0 {
			return int64(-ierr)
		}
		if length == 0 {
			continue
		}
		buf := make([]byte, length)
		if rerr := p.AS.CopyIn(buf, base); rerr != 0 {
			return int64(-defs.EFAULT)
		}
		n, werr := ent.File.Node.Write(buf, off+total)
		if werr != 0 {
			return int64(-werr)
		}
		total += int64(n)
		if n < length {
			break
		}
	}
	ent.File.SetSeek(off + total)
	return total
}

// readIovec decodes the i'th struct iovec (base uintptr, len size_t) of
// a user-space array, the shape both readv and writev scatter/gather
// over.
func readIovec(p *proc.Process, iovUva uintptr, i int) (uintptr, int, defs.Err_t) {
	const iovecSz = 16
	var buf [iovecSz]byte
	if err := p.AS.CopyIn(buf[:], iovUva+uintptr(i*iovecSz)); err != 0 {
		return 0, 0, defs.EFAULT
	}
	base := uintptr(le64(buf[0:8]))
	length := int(le64(buf[8:16]))
	return base, length, 0
}

// pollOnce runs a single non-blocking readiness pass over nfds pollfd
// structs at uva, writing revents back, and returns the number ready.
func (d *Dispatcher) pollOnce(p *proc.Process, uva uintptr, nfds int) (int64, defs.Err_t) {
	const sz = 8
	ready := 0
	for i := 0; i < nfds; i++ {
		var buf [sz]byte
		if err := p.AS.CopyIn(buf[:], uva+uintptr(i*sz)); err != 0 {
			return 0, defs.EFAULT
		}
		fd := int(int32(buf[0]) | int32(buf[1])<<8 | int32(buf[2])<<16 | int32(buf[3])<<24)
		events := int(int16(buf[4]) | int16(buf[5])<<8)
		ent, ferr := p.FdSlot(fd)
		var revents int
		if ferr != 0 {
			revents = 0x20 // POLLNVAL
		} else {
			r, _ := ent.File.Node.Poll(events)
			revents = r
		}
		if revents != 0 {
			ready++
		}
		buf[6] = byte(revents)
		buf[7] = byte(revents >> 8)
		if werr := p.AS.CopyOut(uva+uintptr(i*sz), buf[:]); werr != 0 {
			return 0, defs.EFAULT
		}
	}
	return int64(ready), 0
}

// sysPoll implements poll(2) over a user-space array of pollfd structs
// (fd int32, events int16, revents int16), following rimmy's poll
// dispatch in service.rs/poll_fd_set: a zero timeout never suspends
// (one immediate pass), a negative timeout blocks until some fd is
// ready, and a positive timeout compares against d.Clock's monotonic
// counter, the way service::poll's deadline check does.
func (d *Dispatcher) sysPoll(p *proc.Process, uva uintptr, nfds int, timeoutMs int) int64 {
	ready, err := d.pollOnce(p, uva, nfds)
	if err != 0 {
		return int64(-err)
	}
	if ready > 0 || timeoutMs == 0 {
		return ready
	}

	var deadline clock.Timespec
	hasDeadline := timeoutMs > 0
	if hasDeadline {
		now := d.Clock.Now(clock.CLOCK_MONOTONIC)
		deadline = clock.Timespec{
			Sec:  now.Sec + int64(timeoutMs)/1000,
			Nsec: now.Nsec + (int64(timeoutMs)%1000)*1000000,
		}
		if deadline.Nsec >= 1000000000 {
			deadline.Sec++
			deadline.Nsec -= 1000000000
		}
	}

	for {
		time.Sleep(time.Millisecond)
		ready, err := d.pollOnce(p, uva, nfds)
		if err != 0 {
			return int64(-err)
		}
		if ready > 0 {
			return ready
		}
		if hasDeadline {
			now := d.Clock.Now(clock.CLOCK_MONOTONIC)
			if now.Sec > deadline.Sec || (now.Sec == deadline.Sec && now.Nsec >= deadline.Nsec) {
				return 0
			}
		}
	}
}
