package syscall

import (
	"crypto/rand"
	"fmt"
	"io"

	"vortex/as"
	"vortex/defs"
	"vortex/elfloader"
	"vortex/proc"
	"vortex/trapframe"
	"vortex/ustack"
	"vortex/vfs"
)

// execHeapStart is the brk cursor a freshly exec'd process starts at,
// matching cmd/kernel's own initHeapStart for the first process.
const execHeapStart = 0x10000000

// nodeReaderAt adapts a vfs.Node to io.ReaderAt so debug/elf can parse
// it directly, without first slurping the whole file into a buffer the
// way service::execev's elf_buf does.
type nodeReaderAt struct{ node vfs.Node }

func (r *nodeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	n, err := r.node.Read(p, off)
	if err != 0 {
		return n, fmt.Errorf("vfs node read: errno %d", err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readStrArray reads a NULL-terminated array of user-space char*
// pointers (argv/envp's shape) and returns the strings they reference.
func readStrArray(p *proc.Process, arrUva uintptr) ([]string, defs.Err_t) {
	if arrUva == 0 {
		return nil, 0
	}
	var out []string
	for i := 0; i < 128; i++ {
		var b [8]byte
		if err := p.AS.CopyIn(b[:], arrUva+uintptr(i*8)); err != 0 {
			return nil, err
		}
		ptr := le64(b[:])
		if ptr == 0 {
			return out, 0
		}
		s, err := p.AS.Userstr(uintptr(ptr), 4096)
		if err != 0 {
			return nil, err
		}
		out = append(out, s)
	}
	return nil, defs.EINVAL
}

// sysExecve implements execve(path, argv, envp), grounded on
// service::execev: open and load the named ELF image into a fresh
// address space, chase a PT_INTERP if present, build the initial user
// stack, and register the loaded image as a new process linked back to
// the caller via proc.Table.Exec's exec-chain semantics (see table.go;
// this deliberately does not tear down or replace the caller's own pid,
// matching the non-POSIX chain behavior the process runtime models).
//
// On success the passed-in trapframe is rewritten to resume directly
// at the new image's entry point and initial stack — there is no
// scheduler in this tree to hand control to the new process through,
// so the transfer happens in place within the same SYSCALL return path
// rimmy's "push and immediately enter user mode" comment describes.
func (d *Dispatcher) sysExecve(p *proc.Process, frame *trapframe.Frame, pathUva, argvUva, envpUva uintptr) int64 {
	if d.Alloc == nil {
		return int64(-defs.ENOSYS)
	}

	path, perr := p.AS.Userstr(pathUva, 4096)
	if perr != 0 {
		return int64(-perr)
	}
	full, ferr := p.FullPath(defs.AT_FDCWD, path)
	if ferr != 0 {
		return int64(-ferr)
	}
	node, verr := d.Vfs.Open(full)
	if verr != 0 {
		return int64(-verr)
	}
	if node.Metadata().Type != vfs.File {
		return int64(-defs.EISDIR)
	}

	argv, aerr := readStrArray(p, argvUva)
	if aerr != 0 {
		return int64(-aerr)
	}
	envp, eerr := readStrArray(p, envpUva)
	if eerr != 0 {
		return int64(-eerr)
	}

	aspace := as.New(d.Alloc, execHeapStart)
	img, lerr := elfloader.Load(aspace, &nodeReaderAt{node: node})
	if lerr != 0 {
		return int64(-lerr)
	}

	entry := uint64(img.Entry)
	atBase := uint64(0)
	if img.Interp != "" {
		interpNode, ierr := d.Vfs.Open(img.Interp)
		if ierr != 0 {
			return int64(-ierr)
		}
		interpImg, ilerr := elfloader.LoadInterp(aspace, &nodeReaderAt{node: interpNode})
		if ilerr != 0 {
			return int64(-ilerr)
		}
		entry = uint64(interpImg.Entry)
		atBase = uint64(interpImg.Base)
	}

	var random [16]byte
	if _, err := rand.Read(random[:]); err != nil {
		random = [16]byte{}
	}

	sp, serr := ustack.Build(aspace, ustack.Params{
		Argv:    argv,
		Envp:    envp,
		PHdrVA:  uint64(img.PHdrVA),
		PHEntSz: uint64(img.PHEntSz),
		PHNum:   uint64(img.PHNum),
		Base:    atBase,
		Entry:   uint64(img.Entry),
		Random:  random,
		Execfn:  full,
	})
	if serr != 0 {
		return int64(-serr)
	}

	stdin, _ := p.FdSlot(0)
	stdout, _ := p.FdSlot(1)
	stderr, _ := p.FdSlot(2)

	newPid := d.Table.Alloc()
	newProc := proc.New(newPid, p.Pid, aspace, p.Cwd, stdin.File.Node, stdout.File.Node, stderr.File.Node)
	newProc.Ctx.RIP = entry
	d.Table.Exec(p, newProc)

	frame.RIP = entry
	frame.RSP = uint64(sp)
	return 0
}
