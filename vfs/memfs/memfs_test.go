package memfs

import (
	"testing"

	"vortex/defs"
	"vortex/frame"
	"vortex/mem"
	"vortex/vfs"
)

func TestWriteReadRoundTrip(t *testing.T) {
	fs := New(frame.NewBitmap(0, 64))
	if err := fs.Touch("/", "greeting.txt", 0644); err != 0 {
		t.Fatalf("Touch: %v", err)
	}
	node, err := fs.Open("/greeting.txt")
	if err != 0 {
		t.Fatalf("Open: %v", err)
	}

	msg := []byte("hello, vortex")
	if n, werr := node.Write(msg, 0); werr != 0 || n != len(msg) {
		t.Fatalf("Write: n=%d err=%v", n, werr)
	}

	got := make([]byte, len(msg))
	if n, rerr := node.Read(got, 0); rerr != 0 || n != len(msg) {
		t.Fatalf("Read: n=%d err=%v", n, rerr)
	}
	if string(got) != string(msg) {
		t.Errorf("Read = %q, want %q", got, msg)
	}
}

func TestWriteSpanningMultiplePages(t *testing.T) {
	fs := New(frame.NewBitmap(0, 64))
	fs.Touch("/", "big.bin", 0644)
	node, _ := fs.Open("/big.bin")

	payload := make([]byte, mem.PGSIZE+128)
	for i := range payload {
		payload[i] = byte(i)
	}
	if n, werr := node.Write(payload, 0); werr != 0 || n != len(payload) {
		t.Fatalf("Write: n=%d err=%v", n, werr)
	}

	got := make([]byte, len(payload))
	if n, rerr := node.Read(got, 0); rerr != 0 || n != len(payload) {
		t.Fatalf("Read: n=%d err=%v", n, rerr)
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], payload[i])
		}
	}
}

func TestMmapReturnsBackingFrames(t *testing.T) {
	fs := New(frame.NewBitmap(0, 64))
	fs.Touch("/", "mapped.bin", 0644)
	node, _ := fs.Open("/mapped.bin")

	content := []byte("mmap me")
	node.Write(content, 0)

	frames, err := node.Mmap(int64(mem.PGSIZE), 0, 0, 0)
	if err != 0 {
		t.Fatalf("Mmap: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
}

func TestMmapOnDirectoryFails(t *testing.T) {
	fs := New(frame.NewBitmap(0, 64))
	root, _ := fs.Open("/")
	if _, err := root.Mmap(int64(mem.PGSIZE), 0, 0, 0); err == 0 {
		t.Fatalf("Mmap on a directory should fail")
	}
}

func TestTruncateResetsSize(t *testing.T) {
	fs := New(frame.NewBitmap(0, 64))
	fs.Touch("/", "shrink.bin", 0644)
	node, _ := fs.Open("/shrink.bin")
	node.Write([]byte("some content"), 0)

	if node.Metadata().Size == 0 {
		t.Fatalf("expected non-zero size before truncate")
	}

	trunc, ok := node.(interface{ Truncate() defs.Err_t })
	if !ok {
		t.Fatalf("node does not implement Truncate")
	}
	if err := trunc.Truncate(); err != 0 {
		t.Fatalf("Truncate: %v", err)
	}
	if node.Metadata().Size != 0 {
		t.Fatalf("size after truncate = %d, want 0", node.Metadata().Size)
	}
}

var _ vfs.Node = (*entry)(nil)
