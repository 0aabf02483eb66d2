package fault

import (
	"strings"
	"testing"
)

func TestDescribeDecodesRet(t *testing.T) {
	// 0xC3 = RET
	got := Describe(0x400000, []byte{0xc3})
	if !strings.Contains(got, "400000") {
		t.Errorf("Describe output missing rip: %q", got)
	}
}

func TestDescribeUndecodable(t *testing.T) {
	got := Describe(0x400000, []byte{0x0f, 0xff})
	if !strings.Contains(got, "undecodable") {
		t.Errorf("expected undecodable marker, got %q", got)
	}
}

func TestClassifyRet(t *testing.T) {
	op, ok := Classify([]byte{0xc3})
	if !ok {
		t.Fatal("expected successful decode")
	}
	if op.String() != "RET" {
		t.Errorf("got op %v, want RET", op)
	}
}
