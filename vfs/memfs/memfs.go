// Package memfs is a simple in-memory FileSystem implementation,
// standing in for the on-disk filesystem rimmy_kernel backs the VFS
// with (out of scope for this process runtime per the external
// collaborator boundary), sufficient to exercise openat/getdents64/
// mkdir/touch/unlink end to end. Regular files are stored as
// page-granular physical frames drawn from a frame.Allocator, the same
// collaborator the address-space package draws from, so a file's pages
// can be mapped directly into a process's address space for a Shared
// mmap instead of only ever being copied through read/write.
package memfs

import (
	"strings"
	"sync"

	"vortex/bpath"
	"vortex/defs"
	"vortex/frame"
	"vortex/mem"
	"vortex/vfs"
)

// entry backs a regular file's content with page-granular physical
// frames drawn from the same frame.Allocator the address-space package
// uses, rather than a plain []byte, so its pages can be handed
// directly to a Shared mmap via Mmap below instead of only ever being
// copied through read/write.
type entry struct {
	mu       sync.Mutex
	meta     vfs.Metadata
	alloc    frame.Allocator
	pages    map[int64]mem.Pa_t // page index -> backing frame, File nodes only
	children map[string]*entry  // nil for regular files
}

func (e *entry) Read(buf []byte, off int64) (int, defs.Err_t) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta.Type == vfs.Dir {
		return 0, defs.EISDIR
	}
	if off >= e.meta.Size {
		return 0, 0
	}
	n := 0
	for n < len(buf) && off+int64(n) < e.meta.Size {
		cur := off + int64(n)
		pgIdx := cur / mem.PGSIZE
		pgOff := cur % mem.PGSIZE
		pa, ok := e.pages[pgIdx]
		if !ok {
			break
		}
		pg := e.alloc.Translate(pa)
		c := copy(buf[n:], pg[pgOff:])
		if remain := e.meta.Size - cur; int64(c) > remain {
			c = int(remain)
		}
		n += c
	}
	return n, 0
}

func (e *entry) Write(buf []byte, off int64) (int, defs.Err_t) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta.Type == vfs.Dir {
		return 0, defs.EISDIR
	}
	n := 0
	for n < len(buf) {
		cur := off + int64(n)
		pgIdx := cur / mem.PGSIZE
		pgOff := cur % mem.PGSIZE
		pa, ok := e.pages[pgIdx]
		if !ok {
			var aerr defs.Err_t
			pa, aerr = e.alloc.AllocPage()
			if aerr != 0 {
				return n, aerr
			}
			e.pages[pgIdx] = pa
		}
		pg := e.alloc.Translate(pa)
		n += copy(pg[pgOff:], buf[n:])
	}
	if off+int64(n) > e.meta.Size {
		e.meta.Size = off + int64(n)
	}
	return n, 0
}

// Mmap hands back the physical frames already backing [off,
// off+length), allocating any pages in that range the file doesn't
// have yet (mmap past EOF within a page is routine; the page is
// zero-filled by AllocPage the same way brk growth is). The caller
// installs these frames into its own address space via
// as.AS.MapKernelBuffer; memfs never maps anything itself.
func (e *entry) Mmap(length int64, prot, flags int, off int64) ([]uintptr, defs.Err_t) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta.Type != vfs.File {
		return nil, defs.EISDIR
	}
	if off < 0 || off%mem.PGSIZE != 0 || length <= 0 {
		return nil, defs.EINVAL
	}
	npages := int((length + mem.PGSIZE - 1) / mem.PGSIZE)
	out := make([]uintptr, npages)
	for i := 0; i < npages; i++ {
		pgIdx := off/mem.PGSIZE + int64(i)
		pa, ok := e.pages[pgIdx]
		if !ok {
			var aerr defs.Err_t
			pa, aerr = e.alloc.AllocPage()
			if aerr != 0 {
				return nil, aerr
			}
			e.pages[pgIdx] = pa
		}
		out[i] = uintptr(pa)
	}
	return out, 0
}

func (e *entry) Poll(events int) (int, defs.Err_t) { return events, 0 }

func (e *entry) Ioctl(cmd uintptr, arg uintptr) (uintptr, defs.Err_t) {
	return 0, defs.ENOSYS
}

func (e *entry) Unlink() defs.Err_t { return 0 }

// Touch updates the entry's access/modification timestamps in place,
// the hook utimensat drives.
func (e *entry) Touch(atime, mtime int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta.AccessTime = atime
	e.meta.ModifiedTime = mtime
}

func (e *entry) Metadata() vfs.Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

// Truncate resets a regular file's content to zero length, the
// behavior openat(O_TRUNC) drives; rimmy_kernel's own openat leaves
// this as a documented no-op (its O_TRUNC check runs but the actual
// content reset is commented out). This implementation performs the
// reset for real: nothing in the spec excludes it, and a no-op
// O_TRUNC would silently violate the open(2) contract.
func (e *entry) Truncate() defs.Err_t {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.meta.Type == vfs.Dir {
		return defs.EISDIR
	}
	for pgIdx, pa := range e.pages {
		e.alloc.FreePage(pa)
		delete(e.pages, pgIdx)
	}
	e.meta.Size = 0
	return 0
}

// FS is an in-memory filesystem rooted at a single directory tree,
// backed by alloc for every regular file's page storage.
type FS struct {
	mu    sync.Mutex
	ino   uint64
	root  *entry
	alloc frame.Allocator
}

// New returns an empty in-memory filesystem with just a root
// directory, drawing every regular file's pages from alloc.
func New(alloc frame.Allocator) *FS {
	return &FS{
		alloc: alloc,
		root:  &entry{meta: vfs.Metadata{Ino: 1, Name: "/", Type: vfs.Dir}, children: map[string]*entry{}},
		ino:   1,
	}
}

func (fs *FS) nextIno() uint64 {
	fs.ino++
	return fs.ino
}

func (fs *FS) lookup(path string) (*entry, defs.Err_t) {
	path = bpath.Normalize(path)
	if path == "/" {
		return fs.root, 0
	}
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := fs.root
	for _, seg := range segs {
		if cur.children == nil {
			return nil, defs.ENOTDIR
		}
		next, ok := cur.children[seg]
		if !ok {
			return nil, defs.ENOENT
		}
		cur = next
	}
	return cur, 0
}

func (fs *FS) Open(path string) (vfs.Node, defs.Err_t) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.lookup(path)
	if err != 0 {
		return nil, err
	}
	return e, 0
}

func (fs *FS) Mkdir(path string, mode int) defs.Err_t {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	dir, name := bpath.SplitParentName(bpath.Normalize(path))
	parent, err := fs.lookup(dir)
	if err != 0 {
		return err
	}
	if parent.children == nil {
		return defs.ENOTDIR
	}
	if _, ok := parent.children[name]; ok {
		return defs.EEXIST
	}
	parent.children[name] = &entry{
		meta:     vfs.Metadata{Ino: fs.nextIno(), Name: name, Type: vfs.Dir},
		alloc:    fs.alloc,
		children: map[string]*entry{},
	}
	return 0
}

func (fs *FS) Rmdir(path string) defs.Err_t {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	dir, name := bpath.SplitParentName(bpath.Normalize(path))
	parent, err := fs.lookup(dir)
	if err != 0 {
		return err
	}
	e, ok := parent.children[name]
	if !ok {
		return defs.ENOENT
	}
	if e.meta.Type != vfs.Dir {
		return defs.ENOTDIR
	}
	if len(e.children) != 0 {
		return defs.EINVAL
	}
	delete(parent.children, name)
	return 0
}

func (fs *FS) Ls(path string) ([]vfs.Metadata, defs.Err_t) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.lookup(path)
	if err != 0 {
		return nil, err
	}
	if e.children == nil {
		return nil, defs.ENOTDIR
	}
	out := make([]vfs.Metadata, 0, len(e.children))
	for _, c := range e.children {
		out = append(out, c.meta)
	}
	return out, 0
}

func (fs *FS) Rm(path string) defs.Err_t {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	dir, name := bpath.SplitParentName(bpath.Normalize(path))
	parent, err := fs.lookup(dir)
	if err != 0 {
		return err
	}
	e, ok := parent.children[name]
	if !ok {
		return defs.ENOENT
	}
	if e.meta.Type == vfs.Dir {
		return defs.EISDIR
	}
	delete(parent.children, name)
	return 0
}

func (fs *FS) Touch(dir, name string, mode int) defs.Err_t {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	parent, err := fs.lookup(dir)
	if err != 0 {
		return err
	}
	if parent.children == nil {
		return defs.ENOTDIR
	}
	if _, ok := parent.children[name]; ok {
		return 0
	}
	parent.children[name] = &entry{
		meta:  vfs.Metadata{Ino: fs.nextIno(), Name: name, Type: vfs.File},
		alloc: fs.alloc,
		pages: map[int64]mem.Pa_t{},
	}
	return 0
}

func (fs *FS) Stat(path string) (vfs.Metadata, defs.Err_t) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	e, err := fs.lookup(path)
	if err != 0 {
		return vfs.Metadata{}, err
	}
	return e.meta, 0
}
