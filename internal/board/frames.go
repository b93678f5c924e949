package board

import (
	"github.com/noteboard/noteboard/internal/shape"
)

// commit records the current shape set as a new history frame, dropping
// any redo tail.
func (b *Board) commit() {
	inserted := b.scene.Inserted()
	f := Frame{
		Shapes: make([]*shape.Shape, len(inserted)),
		Style:  b.style.Clone(),
		Mode:   b.mode,
	}
	for i, s := range inserted {
		f.Shapes[i] = shape.Clone(s)
	}
	b.history.Add(f)
	b.emit(Event{
		Type:    EventCommit,
		Shapes:  len(f.Shapes),
		CanUndo: b.history.CanUndo(),
		CanRedo: b.history.CanRedo(),
	})
}

// restore replaces the scene with the shapes of f. Shapes are copied again
// so later drags cannot reach into the frame.
func (b *Board) restore(f Frame) {
	b.scene.Clear()
	for _, s := range f.Shapes {
		b.scene.Add(shape.Clone(s))
	}
	b.engine.RequestRender()
}

// Undo steps back one frame. Undoing the first frame leaves an empty board.
// It reports false when there is nothing to undo.
func (b *Board) Undo() (bool, error) {
	var changed bool
	err := b.do(func() error {
		b.cancelGesture()
		if !b.history.CanUndo() {
			return nil
		}
		f, _ := b.history.Undo()
		b.restore(f)
		changed = true
		b.emit(b.historyEvent(EventUndo))
		return nil
	})
	return changed, err
}

// Redo re-applies the next frame. It reports false at the tail.
func (b *Board) Redo() (bool, error) {
	var changed bool
	err := b.do(func() error {
		b.cancelGesture()
		f, ok := b.history.Redo()
		if !ok {
			return nil
		}
		b.restore(f)
		changed = true
		b.emit(b.historyEvent(EventRedo))
		return nil
	})
	return changed, err
}

func (b *Board) historyEvent(t EventType) Event {
	return Event{
		Type:    t,
		Shapes:  b.scene.Len(),
		CanUndo: b.history.CanUndo(),
		CanRedo: b.history.CanRedo(),
	}
}

// Clear removes every shape and commits the empty board, so Clear itself
// can be undone. It is a no-op on an empty board.
func (b *Board) Clear() error {
	return b.do(func() error {
		b.cancelGesture()
		if b.scene.Len() == 0 {
			return nil
		}
		for _, s := range b.scene.Inserted() {
			b.emitShape(EventShapeRemoved, s)
		}
		b.scene.Clear()
		b.commit()
		b.engine.RequestRender()
		return nil
	})
}

// RemoveShape deletes one shape and commits the result. It reports false
// for an unknown id.
func (b *Board) RemoveShape(id string) (bool, error) {
	var removed bool
	err := b.do(func() error {
		if b.g.shape != nil && b.g.shape.ID == id {
			b.cancelGesture()
		}
		s, ok := b.scene.Remove(id)
		if !ok {
			return nil
		}
		removed = true
		b.emitShape(EventShapeRemoved, s)
		b.commit()
		b.engine.RequestRender()
		return nil
	})
	return removed, err
}
