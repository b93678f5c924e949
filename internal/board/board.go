// Package board composes a viewport, a scene, an undo history and a render
// engine into an interactive drawing board driven by pointer and wheel
// events.
//
// Every exported method is serialized behind one mutex, shared with the
// render tick, so a Board may be used from any goroutine. Event handlers
// run after the lock is released and may call back into the board; frame
// handlers registered with OnFrame run under it and must not.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/noteboard/noteboard/internal/asset"
	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/history"
	"github.com/noteboard/noteboard/internal/pubsub"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/scene"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/surface"
	"github.com/noteboard/noteboard/internal/viewport"
)

var (
	ErrDisposed     = errors.New("board disposed")
	ErrNoImage      = errors.New("no background image drawn")
	ErrNotResizable = errors.New("surface cannot be resized")
)

// cullPadding keeps strokes whose width reaches into view from being culled.
const cullPadding = 16

// Frame is one undo/redo checkpoint: the complete shape set at commit time
// together with the drawing style and mode in effect.
type Frame struct {
	Shapes []*shape.Shape
	Style  shape.Style
	Mode   Mode
}

// Board is an interactive whiteboard.
type Board struct {
	mu       sync.Mutex
	disposed bool

	opts     Options
	logger   *slog.Logger
	loader   shape.Loader
	frames   render.FrameSource
	surf     surface.Surface
	underlay surface.Surface

	view    *viewport.Viewport
	scene   *scene.Scene
	history *history.History[Frame]
	engine  *render.Engine

	mode      Mode
	style     shape.Style
	composite surface.CompositeOp
	cursor    string

	g        gesture
	bg       *background
	loadCtx  context.Context
	stopLoad context.CancelFunc
	loads    loadTracker
	unsubs   []func()

	events  pubsub.Bus[Event]
	pending []Event
}

// New creates a board drawing onto surf. It fails with surface.ErrNoContext
// when surf yields no drawing context. A Resizable surface is resized to
// the configured size and DPR.
func New(surf surface.Surface, opts Options, extra ...Option) (*Board, error) {
	if surf == nil || surf.Context() == nil {
		return nil, fmt.Errorf("create board: %w", surface.ErrNoContext)
	}
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	view, err := viewport.New(viewport.Options{
		MinZoom: opts.MinZoom,
		MaxZoom: opts.MaxZoom,
		Zoom:    opts.Zoom,
		PanX:    opts.PanX,
		PanY:    opts.PanY,
	})
	if err != nil {
		return nil, fmt.Errorf("create board: %w", err)
	}

	b := &Board{
		opts:    opts,
		surf:    surf,
		view:    view,
		scene:   scene.New(),
		history: history.New[Frame](),
		mode:    ModeDraw,
		style:   opts.baseStyle(),
	}
	for _, o := range extra {
		o(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.loader == nil {
		b.loader = asset.NewMux("")
	}
	if b.frames == nil {
		b.frames = render.NewTickerSource(60)
	}

	size := geom.Size{Width: opts.Width, Height: opts.Height}
	if r, ok := surf.(surface.Resizable); ok && (surf.Size() != size || surf.DPR() != opts.DPR) {
		r.Resize(size, opts.DPR)
	}
	if b.underlay == nil {
		if off, ok := surf.(surface.Offscreener); ok {
			b.underlay = off.NewOffscreen()
		} else {
			b.underlay = surface.NewRaster(surf.Size(), surf.DPR())
		}
	}

	b.loadCtx, b.stopLoad = context.WithCancel(context.Background())
	b.engine = render.NewEngine(surf, view, b.scene, b.frames, render.Config{
		Background:   opts.BackgroundColor,
		DoubleBuffer: opts.DoubleBuffer,
		Continuous:   opts.ContinuousRendering,
		CullPadding:  cullPadding,
		Locker:       &b.mu,
		Logger:       b.logger,
	})
	b.unsubs = append(b.unsubs, view.OnChange(func(s viewport.State) {
		b.emit(Event{Type: EventViewportChange, Viewport: &s})
	}))
	b.applyMode(ModeDraw)
	b.pending = nil

	b.logger.Debug("board created", "width", opts.Width, "height", opts.Height, "dpr", opts.DPR)
	return b, nil
}

// NewHeadless creates a board on an in-memory raster of the configured size.
func NewHeadless(opts Options, extra ...Option) (*Board, error) {
	o := opts.withDefaults()
	return New(surface.NewRaster(geom.Size{Width: o.Width, Height: o.Height}, o.DPR), opts, extra...)
}

// do runs fn under the board lock, then publishes the events fn queued.
func (b *Board) do(fn func() error) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return ErrDisposed
	}
	err := fn()
	events := b.pending
	b.pending = nil
	b.mu.Unlock()

	for _, e := range events {
		b.events.Publish(e)
	}
	return err
}

// emit queues e for publication once the current call releases the lock.
func (b *Board) emit(e Event) {
	b.pending = append(b.pending, e)
}

// On registers fn for every board event.
func (b *Board) On(fn func(Event)) (unsubscribe func()) {
	return b.events.Subscribe(fn)
}

// OnType registers fn for events of one type.
func (b *Board) OnType(t EventType, fn func(Event)) (unsubscribe func()) {
	return b.events.Subscribe(func(e Event) {
		if e.Type == t {
			fn(e)
		}
	})
}

// OnFrame registers fn to run after each painted frame, under the board lock.
func (b *Board) OnFrame(fn func(render.Stats)) (unsubscribe func()) {
	return b.engine.OnFrame(fn)
}

// Start begins the render loop.
func (b *Board) Start() error {
	return b.do(func() error {
		b.engine.Start()
		return nil
	})
}

// Stop pauses the render loop.
func (b *Board) Stop() error {
	return b.do(func() error {
		b.engine.Stop()
		return nil
	})
}

// RenderNow repaints the board immediately.
func (b *Board) RenderNow() error {
	return b.do(func() error {
		b.engine.RenderNow()
		return nil
	})
}

// Dispose stops rendering, cancels image loads, drops listeners and
// surfaces. Later calls return ErrDisposed; Dispose itself is idempotent.
func (b *Board) Dispose() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return nil
	}
	b.disposed = true
	b.engine.Close()
	b.stopLoad()
	for _, u := range b.unsubs {
		u()
	}
	b.unsubs = nil
	b.events.Reset()
	b.pending = nil
	b.surf = nil
	b.underlay = nil
	b.logger.Debug("board disposed")
	return nil
}

// Locked runs fn under the board lock, serialized with rendering. fn must
// not call back into the board.
func (b *Board) Locked(fn func()) error {
	return b.do(func() error {
		fn()
		return nil
	})
}

// Disposed reports whether Dispose was called.
func (b *Board) Disposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Mode returns the active tool.
func (b *Board) Mode() Mode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Composite returns the composite operation new shapes are drawn with.
func (b *Board) Composite() surface.CompositeOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.composite
}

// Cursor returns the CSS cursor for the current mode.
func (b *Board) Cursor() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Style returns the drawing style, without the mode's composite.
func (b *Board) Style() shape.Style {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.style.Clone()
}

// Viewport returns the current pan and zoom.
func (b *Board) Viewport() viewport.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.view.State()
}

// Size returns the logical surface size and pixel ratio.
func (b *Board) Size() (geom.Size, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return geom.Size{Width: b.opts.Width, Height: b.opts.Height}, b.opts.DPR
}

// Shapes returns copies of the scene's shapes in draw order.
func (b *Board) Shapes() []*shape.Shape {
	b.mu.Lock()
	defer b.mu.Unlock()
	all := b.scene.All()
	out := make([]*shape.Shape, len(all))
	for i, s := range all {
		out[i] = shape.Clone(s)
	}
	return out
}

// ShapeAt returns a copy of the topmost shape under the screen point.
func (b *Board) ShapeAt(x, y float64) (*shape.Shape, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := b.view.ScreenToWorld(geom.Pt(x, y))
	s, ok := b.scene.HitTest(w.X, w.Y, b.hitTolerance())
	if !ok {
		return nil, false
	}
	return shape.Clone(s), true
}

// CanUndo reports whether Undo would change the board.
func (b *Board) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanUndo()
}

// CanRedo reports whether Redo would change the board.
func (b *Board) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanRedo()
}

// SetMode switches the active tool, committing any gesture in progress.
// The composite operation is reset to the mode's configured value.
func (b *Board) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}
	return b.do(func() error {
		b.finishGesture()
		b.applyMode(m)
		return nil
	})
}

func (b *Board) applyMode(m Mode) {
	b.mode = m
	switch {
	case m == ModeErase:
		b.composite = b.opts.EraseComposite
	case m.isShape():
		b.composite = b.opts.ShapeComposite
	default:
		b.composite = b.opts.DrawComposite
	}
	b.refreshCursor()
	b.emit(Event{Type: EventModeChange, Mode: m, Cursor: b.cursor})
}

func (b *Board) refreshCursor() {
	switch {
	case b.mode.isBrush():
		b.cursor = CursorBrush(b.style.LineWidth * b.view.State().Zoom)
	case b.mode.isShape():
		b.cursor = CursorCrosshair
	case b.mode == ModeDrag:
		b.cursor = CursorGrab
	default:
		b.cursor = CursorDefault
	}
}

// SetStyle replaces the drawing style used for new shapes. The composite
// field is ignored; it follows the mode.
func (b *Board) SetStyle(st shape.Style) error {
	if _, err := surface.ParseColor(st.StrokeColor); err != nil {
		return fmt.Errorf("set style: %w", err)
	}
	if st.FillColor != "" {
		if _, err := surface.ParseColor(st.FillColor); err != nil {
			return fmt.Errorf("set style: %w", err)
		}
	}
	if st.LineWidth <= 0 {
		return fmt.Errorf("set style: line width must be positive, got %v", st.LineWidth)
	}
	return b.do(func() error {
		st = st.Clone()
		if st.Opacity <= 0 {
			st.Opacity = 1
		}
		st.Composite = ""
		b.style = st
		b.refreshCursor()
		return nil
	})
}

// SetLineWidth changes the stroke width of new shapes.
func (b *Board) SetLineWidth(w float64) error {
	if w <= 0 {
		return fmt.Errorf("set line width: must be positive, got %v", w)
	}
	return b.do(func() error {
		b.style.LineWidth = w
		b.refreshCursor()
		return nil
	})
}

// SetStrokeColor changes the stroke color of new shapes.
func (b *Board) SetStrokeColor(c string) error {
	if _, err := surface.ParseColor(c); err != nil {
		return fmt.Errorf("set stroke color: %w", err)
	}
	return b.do(func() error {
		b.style.StrokeColor = c
		return nil
	})
}

// shapeStyle is the style a new shape is created with in the current mode.
func (b *Board) shapeStyle() shape.Style {
	st := b.style.Clone()
	st.Composite = b.composite
	return st
}

// hitTolerance is four screen pixels in world units.
func (b *Board) hitTolerance() float64 {
	return 4 / b.view.State().Zoom
}
