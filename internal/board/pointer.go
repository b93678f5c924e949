package board

import (
	"fmt"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/input"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/surface"
)

// wheelStep is the zoom factor applied per wheel tick.
const wheelStep = 1.1

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureStroke
	gestureCreate
	gestureMove
	gesturePan
)

// gesture is the pointer interaction in progress. A moved shape is edited
// in place; snapshot holds its pre-drag copy so a cancelled drag can be
// undone without touching history.
type gesture struct {
	kind      gestureKind
	pointerID int
	shape     *shape.Shape
	snapshot  *shape.Shape
	screen    geom.Point
	world     geom.Point
	moved     bool
}

var modeKinds = map[Mode]shape.Kind{
	ModeRect:   shape.KindRect,
	ModeCircle: shape.KindCircle,
	ModeArrow:  shape.KindArrow,
}

// HandlePointer feeds one pointer event, in surface-local coordinates, to
// the board.
func (b *Board) HandlePointer(ev input.PointerEvent) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("handle pointer: %w", err)
	}
	return b.do(func() error {
		screen := geom.Pt(ev.X, ev.Y)
		world := b.view.ScreenToWorld(screen)
		if t, ok := pointerEvents[ev.Type]; ok {
			e := ev
			b.emit(Event{Type: t, Pointer: &e, World: &world})
		}

		switch ev.Type {
		case input.PointerDown:
			b.pointerDown(ev, screen, world)
		case input.PointerMove:
			if b.g.kind != gestureNone && ev.PointerID == b.g.pointerID {
				b.pointerMove(screen, world)
			}
		case input.PointerUp, input.PointerLeave:
			if ev.PointerID == b.g.pointerID {
				b.finishGesture()
			}
		case input.PointerCancel:
			if ev.PointerID == b.g.pointerID {
				b.cancelGesture()
			}
		}
		return nil
	})
}

func (b *Board) pointerDown(ev input.PointerEvent, screen, world geom.Point) {
	b.finishGesture()

	pan := (ev.Button == input.ButtonRight && b.opts.EnableRightDrag) ||
		(ev.Button == input.ButtonLeft && b.mode == ModeDrag)
	if pan {
		b.g = gesture{kind: gesturePan, pointerID: ev.PointerID, screen: screen, world: world}
		b.cursor = CursorGrabbing
		return
	}
	if ev.Button != input.ButtonLeft {
		return
	}

	meta := shape.Meta{ZIndex: b.scene.MaxZIndex() + 1}
	switch {
	case b.mode.isBrush():
		s := shape.New(shape.KindBrush, world, nil, b.shapeStyle(), meta)
		b.scene.Add(s)
		b.g = gesture{kind: gestureStroke, pointerID: ev.PointerID, shape: s, screen: screen, world: world}
		b.engine.DrawWorld(func(ctx surface.Context) {
			shape.DrawSegment(s, ctx, world, world)
		})

	case b.mode.isShape():
		if hit, ok := b.scene.HitTest(world.X, world.Y, b.hitTolerance()); ok {
			b.g = gesture{
				kind:      gestureMove,
				pointerID: ev.PointerID,
				shape:     hit,
				snapshot:  shape.Clone(hit),
				screen:    screen,
				world:     world,
			}
			b.cursor = CursorGrabbing
			return
		}
		s := shape.New(modeKinds[b.mode], world, nil, b.shapeStyle(), meta)
		b.scene.Add(s)
		b.g = gesture{kind: gestureCreate, pointerID: ev.PointerID, shape: s, screen: screen, world: world}
		b.engine.RequestRender()
	}
}

func (b *Board) pointerMove(screen, world geom.Point) {
	g := &b.g
	switch g.kind {
	case gesturePan:
		zoom := b.view.State().Zoom
		d := screen.Sub(g.screen).Div(zoom)
		g.screen = screen
		if d == (geom.Point{}) {
			return
		}
		b.view.PanBy(-d.X, -d.Y)
		b.emit(Event{Type: EventDragging, Delta: &d})

	case gestureStroke:
		prev := g.shape.End
		if !shape.AppendPoint(g.shape, world) {
			return
		}
		s := g.shape
		b.engine.DrawWorld(func(ctx surface.Context) {
			shape.DrawSegment(s, ctx, prev, world)
		})

	case gestureCreate:
		shape.SetEnd(g.shape, world)
		b.engine.RequestRender()

	case gestureMove:
		d := world.Sub(g.world)
		g.world = world
		if d == (geom.Point{}) {
			return
		}
		shape.Translate(g.shape, d.X, d.Y)
		g.moved = true
		b.scene.MarkDirty()
		b.engine.RequestRender()
		b.emit(Event{Type: EventDragging, ShapeID: g.shape.ID, Kind: g.shape.Kind.String(), Delta: &d})
	}
}

// finishGesture ends the gesture in progress, committing what it produced.
// A shape created by a click without movement is discarded.
func (b *Board) finishGesture() {
	g := b.g
	b.g = gesture{}
	switch g.kind {
	case gestureNone:
		return
	case gestureStroke:
		shape.Seal(g.shape)
		b.commit()
		b.emitShape(EventShapeAdded, g.shape)
		b.engine.RequestRender()
	case gestureCreate:
		if g.shape.Start == g.shape.End {
			b.scene.Remove(g.shape.ID)
			b.engine.RequestRender()
			break
		}
		b.commit()
		b.emitShape(EventShapeAdded, g.shape)
	case gestureMove:
		if g.moved && g.shape.Start != g.snapshot.Start {
			b.commit()
		}
	}
	b.refreshCursor()
}

// cancelGesture discards the gesture in progress without committing.
func (b *Board) cancelGesture() {
	g := b.g
	b.g = gesture{}
	switch g.kind {
	case gestureNone:
		return
	case gestureStroke, gestureCreate:
		b.scene.Remove(g.shape.ID)
	case gestureMove:
		*g.shape = *g.snapshot
		b.scene.MarkDirty()
	}
	b.engine.RequestRender()
	b.refreshCursor()
}

// HandleWheel zooms by one step around the world point under the cursor.
func (b *Board) HandleWheel(ev input.WheelEvent) error {
	return b.do(func() error {
		e := ev
		b.emit(Event{Type: EventWheel, Wheel: &e})
		if ev.DeltaY == 0 {
			return nil
		}
		anchor := b.view.ScreenToWorld(geom.Pt(ev.X, ev.Y))
		zoom := b.view.State().Zoom
		if ev.DeltaY < 0 {
			zoom *= wheelStep
		} else {
			zoom /= wheelStep
		}
		b.view.SetZoom(zoom, &anchor)
		b.refreshCursor()
		return nil
	})
}

// ZoomIn zooms one step around the surface center.
func (b *Board) ZoomIn() error { return b.zoomBy(wheelStep) }

// ZoomOut zooms out one step around the surface center.
func (b *Board) ZoomOut() error { return b.zoomBy(1 / wheelStep) }

func (b *Board) zoomBy(f float64) error {
	return b.do(func() error {
		b.zoomCentered(b.view.State().Zoom * f)
		return nil
	})
}

// Zoom sets the zoom level, clamped, keeping the surface center fixed.
func (b *Board) Zoom(z float64) error {
	if z <= 0 {
		return fmt.Errorf("zoom: must be positive, got %v", z)
	}
	return b.do(func() error {
		b.zoomCentered(z)
		return nil
	})
}

func (b *Board) zoomCentered(z float64) {
	c := b.view.ScreenToWorld(geom.Pt(b.opts.Width/2, b.opts.Height/2))
	b.view.SetZoom(z, &c)
	b.refreshCursor()
}

// ResetView restores the initial pan and zoom.
func (b *Board) ResetView() error {
	return b.do(func() error {
		b.view.Reset()
		b.refreshCursor()
		return nil
	})
}

// PanBy pans the view by a world-space offset.
func (b *Board) PanBy(dx, dy float64) error {
	return b.do(func() error {
		b.view.PanBy(dx, dy)
		return nil
	})
}

func (b *Board) emitShape(t EventType, s *shape.Shape) {
	b.emit(Event{Type: t, ShapeID: s.ID, Kind: s.Kind.String()})
}
