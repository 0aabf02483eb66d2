package syscall

import (
	"vortex/bpath"
	"vortex/clock"
	"vortex/defs"
	"vortex/proc"
	"vortex/stat"
	"vortex/vfs"
)

// sysOpenat implements openat(2), including the O_CREAT-on-miss,
// O_EXCL, O_DIRECTORY and O_TRUNC checks, per service.rs's openat.
func (d *Dispatcher) sysOpenat(p *proc.Process, dirfd int, pathUva uintptr, flags int, mode int) int64 {
	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	fullPath, ferr := p.FullPath(dirfd, path)
	if ferr != 0 {
		return int64(-ferr)
	}

	node, err := d.Vfs.Open(fullPath)
	existed := err == 0
	if err != 0 {
		if flags&defs.O_CREAT == 0 {
			return int64(-err)
		}
		dir, name := bpath.SplitParentName(fullPath)
		parentNode, derr := d.Vfs.Open(dir)
		if derr != 0 {
			return int64(-defs.ENOENT)
		}
		if parentNode.Metadata().Type != vfs.Dir {
			return int64(-defs.ENOTDIR)
		}
		if terr := d.Vfs.Touch(dir, name, mode); terr != 0 {
			return int64(-defs.EIO)
		}
		node, err = d.Vfs.Open(fullPath)
		if err != 0 {
			return int64(-defs.EIO)
		}
	}

	if existed && flags&defs.O_CREAT != 0 && flags&defs.O_EXCL != 0 {
		return int64(-defs.EEXIST)
	}

	meta := node.Metadata()
	if flags&defs.O_DIRECTORY != 0 && meta.Type != vfs.Dir {
		return int64(-defs.ENOTDIR)
	}
	accmode := flags & defs.O_ACCMODE
	if meta.Type == vfs.Dir && (accmode == defs.O_WRONLY || accmode == defs.O_RDWR) {
		return int64(-defs.EISDIR)
	}

	if flags&defs.O_TRUNC != 0 && meta.Type == vfs.File {
		if t, ok := node.(interface{ Truncate() defs.Err_t }); ok {
			if terr := t.Truncate(); terr != 0 {
				return int64(-terr)
			}
		}
	}

	var initialSeek int64
	if flags&defs.O_APPEND != 0 && meta.Type == vfs.File {
		initialSeek = node.Metadata().Size
	}

	of := &proc.OpenFile{Node: node, Seek: initialSeek, Path: fullPath, StatusFlags: flags &^ defs.O_CLOEXEC}
	fdFlags := 0
	if flags&defs.O_CLOEXEC != 0 {
		fdFlags = proc.FD_CLOEXEC
	}
	fd, ierr := p.InstallFdEntry(&proc.FdEntry{File: of, FdFlags: fdFlags}, 3)
	if ierr != 0 {
		return int64(-ierr)
	}
	return int64(fd)
}

func (d *Dispatcher) sysFstat(p *proc.Process, fd int, uva uintptr) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	meta := ent.File.Node.Metadata()
	var st stat.Stat_t
	st.Wino(meta.Ino)
	st.Wsize(meta.Size)
	st.Wmtime(meta.ModifiedTime, 0)
	switch meta.Type {
	case vfs.Dir:
		st.Wmode(stat.S_IFDIR | 0o755)
	case vfs.CharDevice:
		st.Wmode(stat.S_IFCHR | 0o666)
	default:
		st.Wmode(stat.S_IFREG | 0o644)
	}
	if werr := p.AS.CopyOut(uva, st.Bytes()); werr != 0 {
		return int64(-defs.EFAULT)
	}
	return 0
}

// sysStat implements stat(2): resolve path against cwd and copy back
// its metadata, the path-based counterpart to fstat.
func (d *Dispatcher) sysStat(p *proc.Process, pathUva uintptr, uva uintptr) int64 {
	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	full, ferr := p.FullPath(defs.AT_FDCWD, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	meta, err := d.Vfs.Stat(full)
	if err != 0 {
		return int64(-err)
	}
	var st stat.Stat_t
	st.Wino(meta.Ino)
	st.Wsize(meta.Size)
	st.Wmtime(meta.ModifiedTime, 0)
	switch meta.Type {
	case vfs.Dir:
		st.Wmode(stat.S_IFDIR | 0o755)
	case vfs.CharDevice:
		st.Wmode(stat.S_IFCHR | 0o666)
	default:
		st.Wmode(stat.S_IFREG | 0o644)
	}
	if werr := p.AS.CopyOut(uva, st.Bytes()); werr != 0 {
		return int64(-defs.EFAULT)
	}
	return 0
}

// dirent64 field sizes: d_ino(8) + d_off(8) + d_reclen(2) + d_type(1),
// then a NUL-terminated name, the whole record padded to 8 bytes, per
// struct linux_dirent64.
const dirent64Header = 19

func directoryEntryType(t vfs.FileType) byte {
	switch t {
	case vfs.Dir:
		return 4 // DT_DIR
	case vfs.CharDevice:
		return 2 // DT_CHR
	case vfs.BlockDevice:
		return 6 // DT_BLK
	default:
		return 8 // DT_REG
	}
}

// sysGetdents64 implements getdents64(2): list the directory fd was
// opened on and serialize struct linux_dirent64 records into the
// user buffer, resuming from where the previous call left off via the
// open file's seek offset (reused here as an entry index rather than a
// byte offset, since memfs directories have no on-disk byte layout).
func (d *Dispatcher) sysGetdents64(p *proc.Process, fd int, uva uintptr, count int) int64 {
	ent, err := p.FdSlot(fd)
	if err != 0 {
		return int64(-err)
	}
	if ent.File.Node.Metadata().Type != vfs.Dir {
		return int64(-defs.ENOTDIR)
	}
	entries, lerr := d.Vfs.Ls(ent.File.Path)
	if lerr != 0 {
		return int64(-lerr)
	}

	start := int(ent.File.GetSeek())
	var out []byte
	idx := start
	for idx < len(entries) {
		m := entries[idx]
		name := append([]byte(m.Name), 0)
		reclen := dirent64Header + len(name)
		if reclen%8 != 0 {
			reclen += 8 - reclen%8
		}
		if len(out)+reclen > count {
			break
		}
		rec := make([]byte, reclen)
		putU64(rec[0:8], m.Ino)
		putU64(rec[8:16], uint64(idx+1))
		rec[16] = byte(reclen)
		rec[17] = byte(reclen >> 8)
		rec[18] = directoryEntryType(m.Type)
		copy(rec[dirent64Header:], name)
		out = append(out, rec...)
		idx++
	}
	if len(out) > 0 {
		if werr := p.AS.CopyOut(uva, out); werr != 0 {
			return int64(-defs.EFAULT)
		}
	}
	ent.File.SetSeek(int64(idx))
	return int64(len(out))
}

func (d *Dispatcher) sysGetcwd(p *proc.Process, uva uintptr, size int) int64 {
	cwd := p.Cwd.String()
	if len(cwd)+1 > size {
		return int64(-defs.EINVAL)
	}
	b := append([]byte(cwd), 0)
	if err := p.AS.CopyOut(uva, b); err != 0 {
		return int64(-defs.EFAULT)
	}
	return int64(len(b))
}

func (d *Dispatcher) sysChdir(p *proc.Process, pathUva uintptr) int64 {
	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	full, ferr := p.FullPath(defs.AT_FDCWD, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	node, err := d.Vfs.Open(full)
	if err != 0 {
		return int64(-err)
	}
	if node.Metadata().Type != vfs.Dir {
		return int64(-defs.ENOTDIR)
	}
	p.Cwd = []byte(full)
	return 0
}

func (d *Dispatcher) sysMkdirat(p *proc.Process, dirfd int, pathUva uintptr, mode int) int64 {
	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	full, ferr := p.FullPath(dirfd, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	return int64(-d.Vfs.Mkdir(full, mode))
}

func (d *Dispatcher) sysRmdir(p *proc.Process, pathUva uintptr) int64 {
	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	full, ferr := p.FullPath(defs.AT_FDCWD, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	return int64(-d.Vfs.Rmdir(full))
}

func (d *Dispatcher) sysUnlink(p *proc.Process, pathUva uintptr) int64 {
	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	full, ferr := p.FullPath(defs.AT_FDCWD, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	return int64(-d.Vfs.Rm(full))
}

func (d *Dispatcher) sysUtimensat(p *proc.Process, dirfd int, pathUva uintptr, timesUva uintptr, flags int) int64 {
	var path string
	if pathUva != 0 {
		var perr defs.Err_t
		path, perr = p.AS.Userstr(pathUva, 4096)
		if perr != 0 {
			return int64(-perr)
		}
	}
	full, ferr := p.FullPath(dirfd, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	node, err := d.Vfs.Open(full)
	if err != 0 {
		return int64(-err)
	}
	now := d.Clock.Now(clock.CLOCK_REALTIME)
	atime, mtime := now.Sec, now.Sec
	if timesUva != 0 {
		var buf [32]byte
		if cerr := p.AS.CopyIn(buf[:], timesUva); cerr != 0 {
			return int64(-defs.EFAULT)
		}
		atime = int64(le64(buf[0:8]))
		mtime = int64(le64(buf[16:24]))
	}
	if t, ok := node.(interface{ Touch(int64, int64) }); ok {
		t.Touch(atime, mtime)
	}
	return 0
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
