package as

import (
	"testing"

	"vortex/frame"
	"vortex/mem"
)

func newTestAS(t *testing.T) *AS {
	t.Helper()
	alloc := frame.NewBitmap(0, 256)
	return New(alloc, 0x1000000)
}

func TestCopyInOut(t *testing.T) {
	a := newTestAS(t)
	va := uintptr(0x2000000)
	if err := a.MapPage(va, PageWritable|PageUser); err != 0 {
		t.Fatalf("MapPage failed: %v", err)
	}
	want := []byte("hello, kernel")
	if err := a.CopyOut(va, want); err != 0 {
		t.Fatalf("CopyOut failed: %v", err)
	}
	got := make([]byte, len(want))
	if err := a.CopyIn(got, va); err != 0 {
		t.Fatalf("CopyIn failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestCopyOutUnmappedFaults(t *testing.T) {
	a := newTestAS(t)
	if err := a.CopyOut(0x3000000, []byte("x")); err == 0 {
		t.Fatal("expected EFAULT on unmapped page")
	}
}

func TestSetBrkGrowAndShrink(t *testing.T) {
	a := newTestAS(t)
	start := a.BrkCur
	grown := a.SetBrk(start + mem.PGSIZE*2)
	if grown != start+mem.PGSIZE*2 {
		t.Fatalf("brk grow: got %#x want %#x", grown, start+mem.PGSIZE*2)
	}
	// a byte in the new region must be writable
	if err := a.CopyOut(start, []byte{1, 2, 3}); err != 0 {
		t.Fatalf("grown heap not writable: %v", err)
	}
	shrunk := a.SetBrk(start)
	if shrunk != start {
		t.Fatalf("brk shrink: got %#x want %#x", shrunk, start)
	}
}

func TestSetBrkZeroReturnsCurrent(t *testing.T) {
	a := newTestAS(t)
	a.SetBrk(a.HeapStart + mem.PGSIZE)
	cur := a.BrkCur
	if got := a.SetBrk(0); got != cur {
		t.Errorf("SetBrk(0) = %#x, want current %#x", got, cur)
	}
}

func TestMapKernelBufferSharesExistingFrame(t *testing.T) {
	alloc := frame.NewBitmap(0, 256)
	a := New(alloc, 0x1000000)

	pa, err := alloc.AllocPage()
	if err != 0 {
		t.Fatalf("AllocPage failed: %v", err)
	}
	copy(alloc.Translate(pa)[:], []byte("shared frame content"))

	va := uintptr(0x5000000)
	if kerr := a.MapKernelBuffer(va, pa, PageWritable|PageUser); kerr != 0 {
		t.Fatalf("MapKernelBuffer failed: %v", kerr)
	}

	got := make([]byte, len("shared frame content"))
	if cerr := a.CopyIn(got, va); cerr != 0 {
		t.Fatalf("CopyIn failed: %v", cerr)
	}
	if string(got) != "shared frame content" {
		t.Errorf("got %q, want %q", got, "shared frame content")
	}

	// Writes through the mapping land on the same frame a second
	// mapping of it would observe, unlike a MapPage/CopyOut pair which
	// would write to a distinct freshly-allocated frame.
	if werr := a.CopyOut(va, []byte("overwritten")); werr != 0 {
		t.Fatalf("CopyOut failed: %v", werr)
	}
	direct := alloc.Translate(pa)
	if string(direct[:len("overwritten")]) != "overwritten" {
		t.Errorf("frame content = %q, want %q", direct[:len("overwritten")], "overwritten")
	}
}

func TestMmapAnonAndMunmapExactMatch(t *testing.T) {
	a := newTestAS(t)
	base, err := a.MapAnon(mem.PGSIZE, true, false)
	if err != 0 {
		t.Fatalf("MapAnon failed: %v", err)
	}
	if err := a.CopyOut(base, []byte("data")); err != 0 {
		t.Fatalf("mmap region not writable: %v", err)
	}
	// munmap with a mismatched length must fail.
	if err := a.RemoveMmap(base, mem.PGSIZE*2); err == 0 {
		t.Fatal("expected EINVAL on inexact munmap")
	}
	if err := a.RemoveMmap(base, mem.PGSIZE); err != 0 {
		t.Fatalf("munmap exact match failed: %v", err)
	}
	if err := a.CopyOut(base, []byte("x")); err == 0 {
		t.Fatal("expected fault after munmap")
	}
}
