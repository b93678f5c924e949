package render

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/pubsub"
	"github.com/noteboard/noteboard/internal/scene"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/surface"
	"github.com/noteboard/noteboard/internal/viewport"
)

// Stats describes one painted frame.
type Stats struct {
	Frame    uint64
	Drawn    int
	Culled   int
	Duration time.Duration
	At       time.Time
}

// Config tunes an Engine.
type Config struct {
	// Background fills the surface before drawing. Empty clears to transparent.
	Background string
	// DoubleBuffer paints into an offscreen surface and blits it in one
	// DrawImage call. Only surfaces implementing surface.Offscreener support it.
	DoubleBuffer bool
	// Continuous repaints on every tick, ignoring the dirty flag.
	Continuous bool
	// CullPadding grows the visible rect by this many screen pixels so
	// strokes whose width pokes into view are still drawn.
	CullPadding float64
	// Locker, when set, is held for the duration of each scheduled tick.
	Locker sync.Locker
	Logger *slog.Logger
}

// Engine repaints a surface from a scene through a viewport.
type Engine struct {
	view   *viewport.Viewport
	scene  *scene.Scene
	sched  *Scheduler
	locker sync.Locker
	logger *slog.Logger

	dirty      atomic.Bool
	continuous atomic.Bool

	surf         surface.Surface
	background   string
	doubleBuffer bool
	cullPadding  float64
	offscreen    surface.Surface
	frames       uint64
	unsubscribe  func()

	frameBus pubsub.Bus[Stats]
}

// NewEngine creates a stopped engine. The first tick always paints.
func NewEngine(surf surface.Surface, view *viewport.Viewport, sc *scene.Scene, src FrameSource, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		view:         view,
		scene:        sc,
		locker:       cfg.Locker,
		logger:       logger,
		surf:         surf,
		background:   cfg.Background,
		doubleBuffer: cfg.DoubleBuffer,
		cullPadding:  cfg.CullPadding,
	}
	e.continuous.Store(cfg.Continuous)
	e.dirty.Store(true)
	e.sched = NewScheduler(src, func(now time.Time) { e.Tick(now) })
	e.unsubscribe = view.OnChange(func(viewport.State) { e.RequestRender() })
	return e
}

// Close stops the frame loop, detaches from the viewport and drops the
// surface. Later ticks are no-ops.
func (e *Engine) Close() {
	e.sched.Stop()
	e.unsubscribe()
	e.surf = nil
	e.offscreen = nil
	e.frameBus.Reset()
}

// Start begins the frame loop.
func (e *Engine) Start() { e.sched.Start() }

// Stop ends the frame loop and cancels any pending frame.
func (e *Engine) Stop() { e.sched.Stop() }

// Running reports whether the frame loop is active.
func (e *Engine) Running() bool { return e.sched.Running() }

// RequestRender marks the next tick as needing a repaint. Safe to call from
// any goroutine.
func (e *Engine) RequestRender() { e.dirty.Store(true) }

// Dirty reports whether a repaint is pending.
func (e *Engine) Dirty() bool { return e.dirty.Load() }

// SetContinuous toggles repainting on every tick.
func (e *Engine) SetContinuous(on bool) { e.continuous.Store(on) }

// Continuous reports whether every tick repaints.
func (e *Engine) Continuous() bool { return e.continuous.Load() }

// SetBackground changes the fill color used to clear each frame.
func (e *Engine) SetBackground(color string) {
	e.background = color
	e.RequestRender()
}

// SetDoubleBuffer toggles offscreen rendering.
func (e *Engine) SetDoubleBuffer(on bool) {
	e.doubleBuffer = on
	if !on {
		e.offscreen = nil
	}
	e.RequestRender()
}

// SetSurface swaps the target surface. A nil surface makes ticks no-ops.
func (e *Engine) SetSurface(s surface.Surface) {
	e.surf = s
	e.offscreen = nil
	e.RequestRender()
}

// Surface returns the target surface.
func (e *Engine) Surface() surface.Surface { return e.surf }

// OnFrame registers fn to run after every painted frame.
func (e *Engine) OnFrame(fn func(Stats)) (unsubscribe func()) {
	return e.frameBus.Subscribe(fn)
}

// Tick is the per-frame callback. It repaints when continuous or dirty and
// reports whether it did.
func (e *Engine) Tick(now time.Time) bool {
	if e.locker != nil {
		e.locker.Lock()
		defer e.locker.Unlock()
	}
	if !e.dirty.Swap(false) && !e.continuous.Load() {
		return false
	}
	return e.paint(now)
}

// RenderNow repaints immediately regardless of the dirty flag. The caller
// must already hold the engine's Locker, if any.
func (e *Engine) RenderNow() bool {
	e.dirty.Store(false)
	return e.paint(time.Now())
}

// DrawWorld runs fn with the visible surface's context set to the world
// transform, without clearing. Used for incremental strokes.
func (e *Engine) DrawWorld(fn func(ctx surface.Context)) {
	if e.surf == nil {
		return
	}
	ctx := e.surf.Context()
	if ctx == nil {
		return
	}
	ctx.Save()
	defer ctx.Restore()
	ctx.SetTransform(e.view.Matrix(e.surf.DPR()))
	fn(ctx)
}

func (e *Engine) target() surface.Surface {
	if !e.doubleBuffer {
		return e.surf
	}
	off, ok := e.surf.(surface.Offscreener)
	if !ok {
		e.logger.Debug("double buffering unsupported by surface, drawing directly")
		return e.surf
	}
	if e.offscreen == nil || e.offscreen.Size() != e.surf.Size() || e.offscreen.DPR() != e.surf.DPR() {
		e.offscreen = off.NewOffscreen()
	}
	return e.offscreen
}

func (e *Engine) paint(now time.Time) bool {
	if e.surf == nil {
		return false
	}
	start := time.Now()
	size, dpr := e.surf.Size(), e.surf.DPR()

	target := e.target()
	ctx := target.Context()
	if ctx == nil {
		return false
	}

	drawn := Paint(ctx, size, dpr, e.view, e.scene, e.background, e.cullPadding)

	if target != e.surf {
		e.blit(target)
	}

	e.frames++
	e.frameBus.Publish(Stats{
		Frame:    e.frames,
		Drawn:    drawn,
		Culled:   e.scene.Len() - drawn,
		Duration: time.Since(start),
		At:       now,
	})
	return true
}

// Paint clears ctx under the DPR transform, fills the background if one is
// given, then draws the visible shapes of sc through the viewport transform.
// It returns how many shapes were drawn.
func Paint(ctx surface.Context, size geom.Size, dpr float64, view *viewport.Viewport, sc *scene.Scene, background string, cullPadding float64) int {
	ctx.Save()
	defer ctx.Restore()

	ctx.SetTransform(geom.Scale(dpr, dpr))
	ctx.ClearRect(0, 0, size.Width, size.Height)
	if background != "" {
		ctx.SetFillStyle(background)
		ctx.FillRect(0, 0, size.Width, size.Height)
	}

	ctx.SetTransform(view.Matrix(dpr))
	visible := view.VisibleWorldRect(size).Inset(cullPadding / view.State().Zoom)
	drawn := 0
	for _, s := range sc.QueryRect(visible) {
		if !s.Visible {
			continue
		}
		shape.Draw(s, ctx)
		drawn++
	}
	return drawn
}

func (e *Engine) blit(off surface.Surface) {
	src, ok := off.(surface.Offscreener)
	if !ok {
		return
	}
	w, h := surface.DeviceSize(e.surf)
	ctx := e.surf.Context()
	ctx.Save()
	ctx.SetTransform(geom.Identity())
	ctx.ClearRect(0, 0, float64(w), float64(h))
	ctx.DrawImage(src.Image(), 0, 0, float64(w), float64(h))
	ctx.Restore()
	ctx.SetTransform(geom.Scale(e.surf.DPR(), e.surf.DPR()))
}
