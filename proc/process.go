package proc

import (
	"sync"

	"vortex/accnt"
	"vortex/as"
	"vortex/bounds"
	"vortex/bpath"
	"vortex/defs"
	"vortex/limits"
	"vortex/res"
	"vortex/ustr"
	"vortex/vfs"
)

// OpenFile is a VFS node plus the per-open-instance state (seek
// position, the path it was opened through, and the status flags
// fcntl(F_GETFL)/(F_SETFL) observe), matching rimmy's OpenFile.
type OpenFile struct {
	mu          sync.Mutex
	Node        vfs.Node
	Seek        int64
	Path        string
	StatusFlags int
}

// GetSeek returns the open file's current seek offset.
func (o *OpenFile) GetSeek() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Seek
}

// SetSeek overwrites the open file's seek offset.
func (o *OpenFile) SetSeek(v int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Seek = v
}

// AddSeek advances the open file's seek offset by delta and returns
// the new value.
func (o *OpenFile) AddSeek(delta int64) int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.Seek += delta
	return o.Seek
}

// GetStatusFlags returns the open file's status flags.
func (o *OpenFile) GetStatusFlags() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.StatusFlags
}

// SetStatusFlags overwrites the open file's status flags with v as
// given; it applies no mask itself (fcntl's F_SETFL path merges in only
// the defs.MutableStatusMask bits before calling it).
func (o *OpenFile) SetStatusFlags(v int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.StatusFlags = v
}

// FD_CLOEXEC is the only fd_flags bit this kernel tracks, matching
// rimmy's FD_CLOEXEC constant.
const FD_CLOEXEC = 0x1

// FdEntry pairs a shared OpenFile with this fd's own flags, so dup'd
// fds share seek position but not close-on-exec.
type FdEntry struct {
	File    *OpenFile
	FdFlags int
}

// Process is one running process: its address space, fd table, and
// resource cursors. Grounded on rimmy's Process plus biscuit's
// fd.Fd_t/fd.Cwd_t for the fd-table and cwd shape.
type Process struct {
	mu sync.Mutex

	Pid      defs.Pid_t
	ParentID defs.Pid_t

	AS  *as.AS
	Cwd ustr.Ustr

	fds []*FdEntry // index i holds fd i+3; fds 0..2 are Stdio

	stdio [3]FdEntry

	Ctx Context
	Fpu FpuState

	Accnt accnt.Accnt_t
}

// New creates a process rooted at the given address space and working
// directory, with stdio fds pre-populated from stdin/stdout/stderr.
func New(pid, parent defs.Pid_t, aspace *as.AS, cwd ustr.Ustr, stdin, stdout, stderr vfs.Node) *Process {
	p := &Process{
		Pid:      pid,
		ParentID: parent,
		AS:       aspace,
		Cwd:      cwd,
		Fpu:      DefaultFpuState(),
	}
	p.stdio[0] = FdEntry{File: &OpenFile{Node: stdin}}
	p.stdio[1] = FdEntry{File: &OpenFile{Node: stdout}}
	p.stdio[2] = FdEntry{File: &OpenFile{Node: stderr}}
	return p
}

// fdSlot resolves fd to its entry, failing EBADF for fd<3 past stdio
// range or an unallocated slot, matching service.rs's fd_slot.
func (p *Process) fdSlot(fd int) (*FdEntry, defs.Err_t) {
	if fd < 0 {
		return nil, defs.EBADF
	}
	if fd < 3 {
		return &p.stdio[fd], 0
	}
	idx := fd - 3
	if idx >= len(p.fds) || p.fds[idx] == nil {
		return nil, defs.EBADF
	}
	return p.fds[idx], 0
}

// FdSlot is fdSlot exported for the syscall package.
func (p *Process) FdSlot(fd int) (*FdEntry, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fdSlot(fd)
}

// InstallFdEntry places entry at the first free slot >= minFd,
// implementing the "lowest available fd" rule open(2)/dup(2) require.
func (p *Process) InstallFdEntry(entry *FdEntry, minFd int) (int, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rsv, err := res.Resadd_noblock(bounds.B_FD_INSTALL_FD_ENTRY, 1)
	if err != 0 {
		return 0, err
	}
	defer rsv.Release()
	if !limits.Syslimit.Fds.Take() {
		return 0, defs.ENOMEM
	}

	start := minFd
	if start < 3 {
		start = 3
	}
	for i := start - 3; i < len(p.fds); i++ {
		if p.fds[i] == nil {
			p.fds[i] = entry
			return i + 3, 0
		}
	}
	for len(p.fds) < start-3 {
		p.fds = append(p.fds, nil)
	}
	p.fds = append(p.fds, entry)
	return len(p.fds) - 1 + 3, 0
}

// CloseFd removes and releases fd's slot.
func (p *Process) CloseFd(fd int) defs.Err_t {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fd < 3 {
		return defs.EBADF
	}
	idx := fd - 3
	if idx >= len(p.fds) || p.fds[idx] == nil {
		return defs.EBADF
	}
	p.fds[idx] = nil
	limits.Syslimit.Fds.Give()
	return 0
}

// ResolveDirfd implements base_for_dirfd: AT_FDCWD resolves against
// Cwd, otherwise dirfd must name an open directory.
func (p *Process) ResolveDirfd(dirfd int) (string, defs.Err_t) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dirfd == defs.AT_FDCWD {
		return p.Cwd.String(), 0
	}
	ent, err := p.fdSlot(dirfd)
	if err != 0 {
		return "", err
	}
	if ent.File.Node.Metadata().Type != vfs.Dir {
		return "", defs.ENOTDIR
	}
	return ent.File.Path, 0
}

// FullPath resolves a possibly-relative path against dirfd, mirroring
// openat's full_path computation in service.rs.
func (p *Process) FullPath(dirfd int, path string) (string, defs.Err_t) {
	if len(path) > 0 && path[0] == '/' {
		return bpath.Normalize(path), 0
	}
	base, err := p.ResolveDirfd(dirfd)
	if err != 0 {
		return "", err
	}
	return bpath.Normalize(bpath.Join(base, path)), 0
}
