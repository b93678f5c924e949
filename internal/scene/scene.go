// Package scene stores the shapes of one board with an id index and a
// lazily z-sorted draw order.
package scene

import (
	"sort"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/shape"
)

// Scene is an ordered collection of shapes. Iteration order is insertion
// order; draw order is ascending ZIndex, ties broken by insertion order.
type Scene struct {
	shapes  []*shape.Shape
	byID    map[string]*shape.Shape
	sorted  []*shape.Shape
	dirty   bool
	version uint64
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		byID:  make(map[string]*shape.Shape),
		dirty: true,
	}
}

// Add inserts s. It reports false, leaving the scene unchanged, when a
// shape with the same id is already present.
func (sc *Scene) Add(s *shape.Shape) bool {
	if _, ok := sc.byID[s.ID]; ok {
		return false
	}
	sc.shapes = append(sc.shapes, s)
	sc.byID[s.ID] = s
	sc.touch()
	return true
}

// Remove deletes the shape with the given id. Unknown ids are a no-op.
func (sc *Scene) Remove(id string) (*shape.Shape, bool) {
	s, ok := sc.byID[id]
	if !ok {
		return nil, false
	}
	delete(sc.byID, id)
	for i, cur := range sc.shapes {
		if cur == s {
			sc.shapes = append(sc.shapes[:i], sc.shapes[i+1:]...)
			break
		}
	}
	sc.touch()
	return s, true
}

// Clear removes every shape.
func (sc *Scene) Clear() {
	sc.shapes = nil
	sc.byID = make(map[string]*shape.Shape)
	sc.touch()
}

// Get returns the shape with the given id.
func (sc *Scene) Get(id string) (*shape.Shape, bool) {
	s, ok := sc.byID[id]
	return s, ok
}

// Len returns the number of shapes.
func (sc *Scene) Len() int {
	return len(sc.shapes)
}

// Version increases on every structural change.
func (sc *Scene) Version() uint64 {
	return sc.version
}

// MarkDirty forces the next All or QueryRect to re-sort, e.g. after a
// shape's ZIndex changed in place.
func (sc *Scene) MarkDirty() {
	sc.touch()
}

func (sc *Scene) touch() {
	sc.dirty = true
	sc.version++
}

// Inserted returns shapes in insertion order. The slice must not be modified.
func (sc *Scene) Inserted() []*shape.Shape {
	return sc.shapes
}

// All returns shapes in draw order. The sort is only recomputed after a
// change; the returned slice must not be modified.
func (sc *Scene) All() []*shape.Shape {
	if sc.dirty {
		sc.sorted = append(sc.sorted[:0], sc.shapes...)
		sort.SliceStable(sc.sorted, func(i, j int) bool {
			return sc.sorted[i].ZIndex < sc.sorted[j].ZIndex
		})
		sc.dirty = false
	}
	return sc.sorted
}

// QueryRect returns the visible shapes whose bounds intersect r, in draw order.
func (sc *Scene) QueryRect(r geom.Rect) []*shape.Shape {
	var out []*shape.Shape
	for _, s := range sc.All() {
		if !s.Visible {
			continue
		}
		if shape.Bounds(s).Intersects(r) {
			out = append(out, s)
		}
	}
	return out
}

// HitTest returns the topmost visible shape under (x, y). Eraser strokes
// are never hit.
func (sc *Scene) HitTest(x, y, tolerance float64) (*shape.Shape, bool) {
	all := sc.All()
	for i := len(all) - 1; i >= 0; i-- {
		s := all[i]
		if !s.Visible || shape.IsEraser(s) {
			continue
		}
		if shape.HitTest(s, x, y, tolerance) {
			return s, true
		}
	}
	return nil, false
}

// MaxZIndex returns the highest ZIndex in the scene, or 0 when empty.
func (sc *Scene) MaxZIndex() int {
	all := sc.All()
	if len(all) == 0 {
		return 0
	}
	return all[len(all)-1].ZIndex
}
