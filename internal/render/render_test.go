package render

import (
	"image"
	"slices"
	"testing"
	"time"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/scene"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/surface"
	"github.com/noteboard/noteboard/internal/viewport"
)

func TestScheduler_StartStopIdempotent(t *testing.T) {
	src := NewManualSource()
	calls := 0
	s := NewScheduler(src, func(time.Time) { calls++ })

	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("not running after Start")
	}
	if src.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", src.Pending())
	}

	src.Step(time.Now())
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if src.Pending() != 1 {
		t.Errorf("pending after step = %d, want 1 (next frame requested)", src.Pending())
	}

	s.Stop()
	s.Stop()
	if s.Running() {
		t.Error("running after Stop")
	}
	if src.Pending() != 0 {
		t.Errorf("pending after Stop = %d, want 0", src.Pending())
	}
	if n := src.Step(time.Now()); n != 0 || calls != 1 {
		t.Errorf("step after Stop fired %d callbacks, calls = %d", n, calls)
	}
}

func TestScheduler_StopInsideCallback(t *testing.T) {
	src := NewManualSource()
	var s *Scheduler
	s = NewScheduler(src, func(time.Time) { s.Stop() })
	s.Start()
	src.Step(time.Now())

	if s.Running() {
		t.Error("still running")
	}
	if src.Pending() != 0 {
		t.Errorf("pending = %d, want 0", src.Pending())
	}
}

func TestScheduler_RestartIgnoresStaleFrame(t *testing.T) {
	src := NewManualSource()
	calls := 0
	s := NewScheduler(src, func(time.Time) { calls++ })
	s.Start()
	var stale []func(time.Time)
	for _, fn := range src.pending {
		stale = append(stale, fn)
	}
	s.Stop()
	s.Start()

	// Fire the callback captured before Stop directly.
	for _, fn := range stale {
		fn(time.Now())
	}
	if calls != 0 {
		t.Errorf("stale frame ran: calls = %d", calls)
	}
}

func TestTickerSource_Cancel(t *testing.T) {
	src := NewTickerSource(1000)
	fired := make(chan struct{}, 1)
	id := src.Request(func(time.Time) { fired <- struct{}{} })
	src.Cancel(id)

	select {
	case <-fired:
		t.Error("cancelled frame fired")
	case <-time.After(20 * time.Millisecond):
	}

	src.Request(func(time.Time) { fired <- struct{}{} })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Error("frame did not fire")
	}
}

func newView(t *testing.T) *viewport.Viewport {
	t.Helper()
	v, err := viewport.New(viewport.Options{MinZoom: 0.1, MaxZoom: 10})
	if err != nil {
		t.Fatalf("viewport.New: %v", err)
	}
	return v
}

func rectShape(id string, x, y, w, h float64) *shape.Shape {
	end := geom.Pt(x+w, y+h)
	return shape.New(shape.KindRect, geom.Pt(x, y), &end, shape.DefaultStyle(), shape.Meta{ID: id})
}

func TestEngine_DirtyFlagSkip(t *testing.T) {
	rec := surface.NewRecorder(geom.Size{Width: 100, Height: 100}, 1)
	e := NewEngine(rec, newView(t), scene.New(), NewManualSource(), Config{})

	if !e.Tick(time.Now()) {
		t.Error("first tick did not paint")
	}
	rec.Flush()
	if e.Tick(time.Now()) {
		t.Error("idle tick painted")
	}
	if len(rec.Commands()) != 0 {
		t.Errorf("idle tick recorded %d commands", len(rec.Commands()))
	}

	e.RequestRender()
	if !e.Tick(time.Now()) {
		t.Error("tick after RequestRender did not paint")
	}

	e.SetContinuous(true)
	if !e.Tick(time.Now()) || !e.Tick(time.Now()) {
		t.Error("continuous mode skipped a tick")
	}
}

func TestEngine_ViewportChangeMarksDirty(t *testing.T) {
	rec := surface.NewRecorder(geom.Size{Width: 100, Height: 100}, 1)
	view := newView(t)
	e := NewEngine(rec, view, scene.New(), NewManualSource(), Config{})
	e.Tick(time.Now())

	view.PanBy(5, 0)
	if !e.Dirty() {
		t.Error("pan did not mark the engine dirty")
	}
}

func TestEngine_CullsAndTransforms(t *testing.T) {
	rec := surface.NewRecorder(geom.Size{Width: 100, Height: 100}, 2)
	view := newView(t)
	view.SetZoom(2, nil)
	sc := scene.New()
	sc.Add(rectShape("in", 10, 10, 5, 5))
	sc.Add(rectShape("out", 500, 500, 5, 5))

	e := NewEngine(rec, view, sc, NewManualSource(), Config{Background: "#ffffff"})
	var stats Stats
	e.OnFrame(func(s Stats) { stats = s })
	e.Tick(time.Now())

	if stats.Frame != 1 || stats.Drawn != 1 || stats.Culled != 1 {
		t.Errorf("stats = %+v, want frame 1, drawn 1, culled 1", stats)
	}

	var transforms [][]float64
	fillStyle := ""
	for _, c := range rec.Commands() {
		switch c.Op {
		case "setTransform":
			transforms = append(transforms, c.Args)
		case "fillStyle":
			if fillStyle == "" {
				fillStyle = c.Value
			}
		}
	}
	if fillStyle != "#ffffff" {
		t.Errorf("first fillStyle = %q, want background", fillStyle)
	}
	if len(transforms) < 2 {
		t.Fatalf("got %d setTransform calls, want at least 2", len(transforms))
	}
	if got, want := transforms[0], geom.Scale(2, 2).ToSlice(); !slices.Equal(got, want) {
		t.Errorf("clear transform = %v, want %v", got, want)
	}
	if got, want := transforms[1], view.Matrix(2).ToSlice(); !slices.Equal(got, want) {
		t.Errorf("world transform = %v, want %v", got, want)
	}
}

func TestEngine_SkipsHidden(t *testing.T) {
	rec := surface.NewRecorder(geom.Size{Width: 100, Height: 100}, 1)
	sc := scene.New()
	hidden := rectShape("hidden", 10, 10, 5, 5)
	hidden.Visible = false
	sc.Add(hidden)

	e := NewEngine(rec, newView(t), sc, NewManualSource(), Config{})
	e.Tick(time.Now())
	if slices.Contains(rec.Ops(), "rect") {
		t.Error("hidden shape was drawn")
	}
}

func TestEngine_DoubleBuffer(t *testing.T) {
	r := surface.NewRaster(geom.Size{Width: 20, Height: 20}, 1)
	sc := scene.New()
	s := rectShape("box", 2, 2, 10, 10)
	s.Style.FillColor = "#00ff00"
	sc.Add(s)

	e := NewEngine(r, newView(t), sc, NewManualSource(), Config{DoubleBuffer: true, Background: "#0000ff"})
	e.Tick(time.Now())

	if e.offscreen == nil {
		t.Fatal("no offscreen surface allocated")
	}
	im := r.Image().(*image.RGBA)
	if got := im.RGBAAt(6, 6); got.G < 200 || got.A != 255 {
		t.Errorf("shape pixel = %v, want green", got)
	}
	if got := im.RGBAAt(18, 18); got.B < 200 || got.A != 255 {
		t.Errorf("background pixel = %v, want blue", got)
	}
	if r.Transform() != geom.Scale(1, 1) {
		t.Errorf("transform after blit = %v, want DPR scale", r.Transform())
	}
}

func TestEngine_StartDrivesTicks(t *testing.T) {
	src := NewManualSource()
	rec := surface.NewRecorder(geom.Size{Width: 10, Height: 10}, 1)
	e := NewEngine(rec, newView(t), scene.New(), src, Config{})

	frames := 0
	e.OnFrame(func(Stats) { frames++ })
	e.Start()
	src.Step(time.Now())
	src.Step(time.Now())
	e.RequestRender()
	src.Step(time.Now())

	if frames != 2 {
		t.Errorf("frames = %d, want 2", frames)
	}

	e.Close()
	e.RequestRender()
	src.Step(time.Now())
	if frames != 2 {
		t.Errorf("frame painted after Close")
	}
	if e.Tick(time.Now()) {
		t.Error("tick after Close painted")
	}
}
