package history

import "testing"

func TestEmpty(t *testing.T) {
	h := New[string]()
	if h.CanUndo() || h.CanRedo() {
		t.Error("empty history reports undo/redo available")
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo on empty history returned ok")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo on empty history returned ok")
	}
	if _, ok := h.Current(); ok {
		t.Error("Current on empty history returned ok")
	}
}

func TestUndoToHead(t *testing.T) {
	h := New[string]()
	h.Add("A")
	h.Add("B")

	if v, ok := h.Undo(); !ok || v != "A" {
		t.Errorf("Undo = %q, %v; want A, true", v, ok)
	}
	// Undoing the first entry reaches the head: clear the canvas.
	if v, ok := h.Undo(); ok || v != "" {
		t.Errorf("Undo to head = %q, %v; want \"\", false", v, ok)
	}
	if h.CanUndo() {
		t.Error("CanUndo at head")
	}
	if h.Cursor() != -1 {
		t.Errorf("Cursor = %d, want -1", h.Cursor())
	}
	// Further undo is a no-op.
	if _, ok := h.Undo(); ok {
		t.Error("Undo past head returned ok")
	}
	if v, ok := h.Redo(); !ok || v != "A" {
		t.Errorf("Redo from head = %q, %v; want A, true", v, ok)
	}
}

func TestBranchTruncation(t *testing.T) {
	h := New[string]()
	h.Add("A")
	h.Add("B")
	h.Add("C")

	h.Undo()
	h.Add("D")

	if h.Len() != 3 {
		t.Fatalf("Len = %d, want 3", h.Len())
	}
	if h.CanRedo() {
		t.Error("C still redoable after branching")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo after branch returned ok")
	}

	var got []string
	for {
		v, ok := h.Current()
		if !ok {
			break
		}
		got = append([]string{v}, got...)
		h.Undo()
	}
	want := []string{"A", "B", "D"}
	if len(got) != len(want) {
		t.Fatalf("walked %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	h := New[int]()
	h.Add(1)
	h.Add(2)
	cur, _ := h.Current()
	cursor, length := h.Cursor(), h.Len()

	h.Undo()
	v, ok := h.Redo()
	if !ok || v != cur {
		t.Errorf("Redo = %d, %v; want %d, true", v, ok, cur)
	}
	if h.Cursor() != cursor || h.Len() != length {
		t.Errorf("cursor/len = %d/%d, want %d/%d", h.Cursor(), h.Len(), cursor, length)
	}
	if h.CanRedo() {
		t.Error("CanRedo at tail")
	}
	if _, ok := h.Redo(); ok {
		t.Error("Redo at tail returned ok")
	}
}

func TestCleanUnused(t *testing.T) {
	h := New[string]()
	h.Add("A")
	h.Add("B")
	h.Undo()

	if !h.CanRedo() {
		t.Fatal("expected redo tail before CleanUnused")
	}
	h.CleanUnused()
	if h.CanRedo() {
		t.Error("redo tail survived CleanUnused")
	}
	if v, _ := h.Current(); v != "A" {
		t.Errorf("Current = %q, want A", v)
	}
	h.Add("C")
	if h.Len() != 2 {
		t.Errorf("Len = %d, want 2", h.Len())
	}
}

func TestReset(t *testing.T) {
	h := New[string]()
	h.Add("A")
	h.Add("B")
	h.Reset()
	if h.Len() != 0 || h.CanUndo() || h.CanRedo() || h.Cursor() != -1 {
		t.Errorf("Reset left len=%d cursor=%d", h.Len(), h.Cursor())
	}
	h.Add("C")
	if v, ok := h.Current(); !ok || v != "C" {
		t.Errorf("Current after reset+add = %q, %v", v, ok)
	}
}
