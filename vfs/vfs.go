// Package vfs defines the node and filesystem collaborator interfaces
// the syscall dispatcher drives, transliterated from rimmy_kernel's
// sys/fs/vfs.rs VfsNodeOps/FileSystem traits into Go interfaces, and
// the mount-point router biscuit's own fs package does not need (it
// has a single on-disk filesystem) but rimmy's Vfs::mount/route does.
package vfs

import (
	"sort"
	"strings"
	"sync"

	"vortex/defs"
)

// FileType classifies a node the way rimmy's FileType enum does.
type FileType int

const (
	File FileType = iota
	Dir
	CharDevice
	BlockDevice
)

// Metadata is the subset of inode attributes the syscall layer exposes
// through fstat/stat, mirroring rimmy's Metadata struct.
type Metadata struct {
	Ino          uint64
	Name         string
	Type         FileType
	Size         int64
	CreatedTime  int64
	AccessTime   int64
	ModifiedTime int64
}

// Node is one open-able VFS entry: a regular file, directory, or
// device node. The interface matches rimmy's VfsNodeOps trait; Mmap
// defaults to EOPNOTSUPP the same way VfsNodeOps::mmap does for nodes
// that don't back memory mappings.
//
// Mmap returns the physical frames already backing [off, off+length)
// of the node's own storage, page-aligned and in order, so the caller
// (the syscall layer) can install them directly into the faulting
// process's address space via as.AS.MapKernelBuffer without copying
// the data through an intermediate anonymous page, the file-backed
// counterpart to the anonymous mmap path.
type Node interface {
	Read(buf []byte, off int64) (int, defs.Err_t)
	Write(buf []byte, off int64) (int, defs.Err_t)
	Poll(events int) (int, defs.Err_t)
	Ioctl(cmd uintptr, arg uintptr) (uintptr, defs.Err_t)
	Unlink() defs.Err_t
	Mmap(length int64, prot, flags int, off int64) ([]uintptr, defs.Err_t)
	Metadata() Metadata
}

// NopMmap is embedded by Node implementations that don't support
// memory mapping, so Mmap reports EOPNOTSUPP without repeating the
// stub in every leaf type.
type NopMmap struct{}

func (NopMmap) Mmap(length int64, prot, flags int, off int64) ([]uintptr, defs.Err_t) {
	return nil, defs.EOPNOTSUPP
}

// FileSystem is one mounted filesystem, matching rimmy's FileSystem
// trait.
type FileSystem interface {
	Open(path string) (Node, defs.Err_t)
	Mkdir(path string, mode int) defs.Err_t
	Rmdir(path string) defs.Err_t
	Ls(path string) ([]Metadata, defs.Err_t)
	Rm(path string) defs.Err_t
	Touch(dir, name string, mode int) defs.Err_t
	Stat(path string) (Metadata, defs.Err_t)
}

type mount struct {
	prefix string
	fs     FileSystem
}

// Vfs routes a path to the filesystem mounted on its longest matching
// prefix, as rimmy's Vfs::route does.
type Vfs struct {
	mu     sync.RWMutex
	mounts []mount
}

// New returns an empty Vfs with no mount points.
func New() *Vfs { return &Vfs{} }

// Mount attaches fs at prefix, re-sorting mount points so lookups
// always match on the longest prefix first.
func (v *Vfs) Mount(prefix string, fs FileSystem) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounts = append(v.mounts, mount{prefix: prefix, fs: fs})
	sort.Slice(v.mounts, func(i, j int) bool {
		return len(v.mounts[i].prefix) > len(v.mounts[j].prefix)
	})
}

// Unmount removes the mount point registered at prefix.
func (v *Vfs) Unmount(prefix string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, m := range v.mounts {
		if m.prefix == prefix {
			v.mounts = append(v.mounts[:i], v.mounts[i+1:]...)
			return
		}
	}
}

func (v *Vfs) route(path string) (FileSystem, string, defs.Err_t) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, m := range v.mounts {
		if strings.HasPrefix(path, m.prefix) {
			return m.fs, path, 0
		}
	}
	return nil, "", defs.ENOENT
}

func (v *Vfs) Open(path string) (Node, defs.Err_t) {
	fs, p, err := v.route(path)
	if err != 0 {
		return nil, err
	}
	return fs.Open(p)
}

func (v *Vfs) Mkdir(path string, mode int) defs.Err_t {
	fs, p, err := v.route(path)
	if err != 0 {
		return err
	}
	return fs.Mkdir(p, mode)
}

func (v *Vfs) Rmdir(path string) defs.Err_t {
	fs, p, err := v.route(path)
	if err != 0 {
		return err
	}
	return fs.Rmdir(p)
}

func (v *Vfs) Ls(path string) ([]Metadata, defs.Err_t) {
	fs, p, err := v.route(path)
	if err != 0 {
		return nil, err
	}
	return fs.Ls(p)
}

func (v *Vfs) Rm(path string) defs.Err_t {
	fs, p, err := v.route(path)
	if err != 0 {
		return err
	}
	return fs.Rm(p)
}

func (v *Vfs) Touch(dir, name string, mode int) defs.Err_t {
	fs, p, err := v.route(dir)
	if err != 0 {
		return err
	}
	return fs.Touch(p, name, mode)
}

func (v *Vfs) Stat(path string) (Metadata, defs.Err_t) {
	fs, p, err := v.route(path)
	if err != 0 {
		return Metadata{}, err
	}
	return fs.Stat(p)
}
