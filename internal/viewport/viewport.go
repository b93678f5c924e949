package viewport

import (
	"errors"
	"fmt"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/pubsub"
)

// ErrInvalidZoomBounds is returned when MinZoom/MaxZoom cannot form a range.
var ErrInvalidZoomBounds = errors.New("invalid zoom bounds")

// State is the pan/zoom state of a viewport. Pan is in world units.
type State struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// Options configures a Viewport.
type Options struct {
	MinZoom float64
	MaxZoom float64
	Zoom    float64
	PanX    float64
	PanY    float64
}

// Viewport owns the pan/zoom state of one board and converts between
// world and screen coordinates:
//
//	screen = (world - pan) * zoom
//	world  = screen / zoom + pan
type Viewport struct {
	state   State
	initial State
	minZoom float64
	maxZoom float64

	changes pubsub.Bus[State]
}

// New creates a viewport. The initial zoom is clamped into [MinZoom, MaxZoom];
// a zero initial zoom means 1.
func New(opts Options) (*Viewport, error) {
	if opts.MinZoom <= 0 || opts.MaxZoom < opts.MinZoom {
		return nil, fmt.Errorf("%w: min=%v max=%v", ErrInvalidZoomBounds, opts.MinZoom, opts.MaxZoom)
	}
	zoom := opts.Zoom
	if zoom == 0 {
		zoom = 1
	}
	v := &Viewport{
		minZoom: opts.MinZoom,
		maxZoom: opts.MaxZoom,
	}
	v.state = State{PanX: opts.PanX, PanY: opts.PanY, Zoom: v.clamp(zoom)}
	v.initial = v.state
	return v, nil
}

// State returns the current pan/zoom.
func (v *Viewport) State() State {
	return v.state
}

// Bounds returns the zoom clamp range.
func (v *Viewport) Bounds() (minZoom, maxZoom float64) {
	return v.minZoom, v.maxZoom
}

// OnChange registers fn to be called after every mutation.
func (v *Viewport) OnChange(fn func(State)) (unsubscribe func()) {
	return v.changes.Subscribe(fn)
}

func (v *Viewport) clamp(z float64) float64 {
	return max(v.minZoom, min(v.maxZoom, z))
}

// SetZoom sets the zoom level, clamped to the configured bounds. When anchor
// is non-nil the pan is recomputed so that the anchor keeps its screen
// position:
//
//	(anchor - pan') * zoom' = (anchor - pan) * zoom
//	pan' = anchor - (anchor - pan) * (zoom / zoom')
func (v *Viewport) SetZoom(z float64, anchor *geom.Point) {
	next := v.clamp(z)
	if anchor != nil {
		ratio := v.state.Zoom / next
		v.state.PanX = anchor.X - (anchor.X-v.state.PanX)*ratio
		v.state.PanY = anchor.Y - (anchor.Y-v.state.PanY)*ratio
	}
	v.state.Zoom = next
	v.changes.Publish(v.state)
}

// PanBy translates the viewport by (dx, dy) world units.
func (v *Viewport) PanBy(dx, dy float64) {
	v.state.PanX += dx
	v.state.PanY += dy
	v.changes.Publish(v.state)
}

// SetPan moves the viewport origin to (x, y).
func (v *Viewport) SetPan(x, y float64) {
	v.state.PanX = x
	v.state.PanY = y
	v.changes.Publish(v.state)
}

// Reset restores the state the viewport was created with.
func (v *Viewport) Reset() {
	v.state = v.initial
	v.changes.Publish(v.state)
}

// Restore replaces the whole state, clamping zoom.
func (v *Viewport) Restore(s State) {
	s.Zoom = v.clamp(s.Zoom)
	v.state = s
	v.changes.Publish(v.state)
}

// WorldToScreen maps a world point to logical screen pixels.
func (v *Viewport) WorldToScreen(p geom.Point) geom.Point {
	return geom.Point{
		X: (p.X - v.state.PanX) * v.state.Zoom,
		Y: (p.Y - v.state.PanY) * v.state.Zoom,
	}
}

// ScreenToWorld maps logical screen pixels to a world point.
func (v *Viewport) ScreenToWorld(p geom.Point) geom.Point {
	return geom.Point{
		X: p.X/v.state.Zoom + v.state.PanX,
		Y: p.Y/v.state.Zoom + v.state.PanY,
	}
}

// VisibleWorldRect returns the world-space area covered by a screen of the given size.
func (v *Viewport) VisibleWorldRect(screen geom.Size) geom.Rect {
	return geom.Rect{
		X:      v.state.PanX,
		Y:      v.state.PanY,
		Width:  screen.Width / v.state.Zoom,
		Height: screen.Height / v.state.Zoom,
	}
}

// Matrix returns the world-to-device transform for the given device pixel ratio:
// scale by zoom*dpr, translate by -pan*zoom*dpr.
func (v *Viewport) Matrix(dpr float64) geom.Matrix2D {
	s := v.state.Zoom * dpr
	return geom.ScaleTranslate(s, -v.state.PanX*s, -v.state.PanY*s)
}
