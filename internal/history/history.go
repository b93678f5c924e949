// Package history keeps undo/redo checkpoints as an arena of values with a
// cursor. Position -1 is the empty head: undoing to it means "nothing left".
package history

// History is an undo/redo list of immutable snapshots. Entries after the
// cursor are the redo tail until the next Add truncates them.
type History[T any] struct {
	items  []T
	cursor int
	length int
}

// New creates an empty history.
func New[T any]() *History[T] {
	return &History[T]{cursor: -1}
}

// Add appends v after the cursor, discarding any redo tail.
func (h *History[T]) Add(v T) {
	h.length = h.cursor + 1
	if h.length < len(h.items) {
		h.items[h.length] = v
		h.clearFrom(h.length + 1)
	} else {
		h.items = append(h.items, v)
	}
	h.length++
	h.cursor++
}

// Undo moves the cursor back one step and returns the value now current.
// At the last entry it moves to the head and returns false, meaning the
// caller should show an empty state. At the head it is a no-op.
func (h *History[T]) Undo() (T, bool) {
	var zero T
	if h.cursor < 0 {
		return zero, false
	}
	h.cursor--
	if h.cursor < 0 {
		return zero, false
	}
	return h.items[h.cursor], true
}

// Redo moves the cursor forward one step and returns its value. At the tail
// it is a no-op returning false.
func (h *History[T]) Redo() (T, bool) {
	var zero T
	if h.cursor+1 >= h.length {
		return zero, false
	}
	h.cursor++
	return h.items[h.cursor], true
}

// CanUndo reports whether Undo would move the cursor.
func (h *History[T]) CanUndo() bool { return h.cursor >= 0 }

// CanRedo reports whether Redo would move the cursor.
func (h *History[T]) CanRedo() bool { return h.cursor+1 < h.length }

// Current returns the value at the cursor, false at the head.
func (h *History[T]) Current() (T, bool) {
	var zero T
	if h.cursor < 0 {
		return zero, false
	}
	return h.items[h.cursor], true
}

// Len returns the number of reachable entries, redo tail included.
func (h *History[T]) Len() int { return h.length }

// Cursor returns the index of the current entry, -1 at the head.
func (h *History[T]) Cursor() int { return h.cursor }

// CleanUnused drops the redo tail without moving the cursor, so the
// entries after it are no longer redoable.
func (h *History[T]) CleanUnused() {
	h.length = h.cursor + 1
	h.clearFrom(h.length)
	h.items = h.items[:h.length]
}

// Reset empties the history.
func (h *History[T]) Reset() {
	h.clearFrom(0)
	h.items = h.items[:0]
	h.cursor = -1
	h.length = 0
}

// clearFrom zeroes slots so discarded values can be collected.
func (h *History[T]) clearFrom(i int) {
	var zero T
	for ; i < len(h.items); i++ {
		h.items[i] = zero
	}
}
