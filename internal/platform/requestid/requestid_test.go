package requestid

import (
	"encoding/hex"
	"testing"
)

func TestNew_HexAndUnique(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	b, err := New()
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	if len(a) != 32 {
		t.Fatalf("len(New())=%d, want 32", len(a))
	}
	if _, err := hex.DecodeString(a); err != nil {
		t.Fatalf("New()=%q is not hex: %v", a, err)
	}
	if a == b {
		t.Fatalf("New() returned duplicate id %q", a)
	}
}
