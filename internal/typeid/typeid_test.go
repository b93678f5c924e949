package typeid

import (
	"strings"
	"testing"
)

func TestNew_PrefixAndValidate(t *testing.T) {
	id := NewShapeID()
	if !strings.HasPrefix(id, PrefixShape+"_") {
		t.Fatalf("id %q missing %q prefix", id, PrefixShape)
	}
	if err := Validate(id, PrefixShape); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := Validate(id, PrefixBoard); err == nil {
		t.Error("Validate with wrong prefix succeeded")
	}
	if err := Validate("not-an-id", PrefixShape); err == nil {
		t.Error("Validate of garbage succeeded")
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewBoardID()
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
