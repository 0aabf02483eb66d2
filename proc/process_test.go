package proc

import (
	"testing"

	"vortex/as"
	"vortex/defs"
	"vortex/frame"
	"vortex/ustr"
	"vortex/vfs"
)

type fakeNode struct {
	vfs.NopMmap
	typ vfs.FileType
}

func (fakeNode) Read(buf []byte, off int64) (int, defs.Err_t)  { return 0, 0 }
func (fakeNode) Write(buf []byte, off int64) (int, defs.Err_t) { return len(buf), 0 }
func (fakeNode) Poll(events int) (int, defs.Err_t)             { return 0, 0 }
func (fakeNode) Ioctl(cmd uintptr, arg uintptr) (uintptr, defs.Err_t) {
	return 0, defs.ENOSYS
}
func (fakeNode) Unlink() defs.Err_t { return 0 }
func (n fakeNode) Metadata() vfs.Metadata {
	return vfs.Metadata{Type: n.typ}
}

func newTestProcess(t *testing.T) *Process {
	t.Helper()
	alloc := frame.NewBitmap(0, 64)
	aspace := as.New(alloc, 0x10000000)
	return New(1, 0, aspace, ustr.MkUstrRoot(), fakeNode{}, fakeNode{}, fakeNode{})
}

func TestFdSlotStdioAndUnallocated(t *testing.T) {
	p := newTestProcess(t)
	if _, err := p.FdSlot(0); err != 0 {
		t.Fatalf("stdio fd 0 should resolve: %v", err)
	}
	if _, err := p.FdSlot(3); err != defs.EBADF {
		t.Fatalf("unallocated fd should be EBADF, got %v", err)
	}
}

func TestInstallFdEntryPicksLowestFree(t *testing.T) {
	p := newTestProcess(t)
	of := &OpenFile{Node: fakeNode{}}
	fd1, err := p.InstallFdEntry(&FdEntry{File: of}, 3)
	if err != 0 || fd1 != 3 {
		t.Fatalf("first fd = %d, err = %v, want 3", fd1, err)
	}
	fd2, err := p.InstallFdEntry(&FdEntry{File: of}, 3)
	if err != 0 || fd2 != 4 {
		t.Fatalf("second fd = %d, want 4", fd2)
	}
	if err := p.CloseFd(3); err != 0 {
		t.Fatalf("close fd 3: %v", err)
	}
	fd3, err := p.InstallFdEntry(&FdEntry{File: of}, 3)
	if err != 0 || fd3 != 3 {
		t.Fatalf("third fd should reuse slot 3, got %d", fd3)
	}
}

func TestFullPathAbsoluteAndRelative(t *testing.T) {
	p := newTestProcess(t)
	p.Cwd = ustr.Ustr("/home/user")
	full, err := p.FullPath(defs.AT_FDCWD, "docs/readme")
	if err != 0 {
		t.Fatalf("FullPath failed: %v", err)
	}
	if full != "/home/user/docs/readme" {
		t.Errorf("got %q", full)
	}
	full, err = p.FullPath(defs.AT_FDCWD, "/etc/passwd")
	if err != 0 || full != "/etc/passwd" {
		t.Errorf("absolute path not preserved: %q, %v", full, err)
	}
}
