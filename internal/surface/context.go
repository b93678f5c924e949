// Package surface defines the drawing-context abstraction shapes render
// through, plus two implementations: Raster (pixels, via fogleman/gg) and
// Recorder (a replayable draw-command list for browser canvases).
package surface

import (
	"errors"
	"fmt"
	"image"

	"github.com/noteboard/noteboard/internal/geom"
)

var (
	// ErrNoContext is returned when a surface cannot provide a drawing context.
	ErrNoContext = errors.New("no drawing context")

	// ErrUnknownComposite is returned for composite operation names we do not implement.
	ErrUnknownComposite = errors.New("unknown composite operation")
)

// CompositeOp mirrors the Canvas2D globalCompositeOperation values we support.
type CompositeOp string

const (
	CompositeSourceOver     CompositeOp = "source-over"
	CompositeDestinationOut CompositeOp = "destination-out"
)

// ParseCompositeOp validates a composite operation name. Empty means source-over.
func ParseCompositeOp(s string) (CompositeOp, error) {
	switch CompositeOp(s) {
	case "", CompositeSourceOver:
		return CompositeSourceOver, nil
	case CompositeDestinationOut:
		return CompositeDestinationOut, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownComposite, s)
}

// Line cap and join names, as in Canvas2D.
const (
	CapButt   = "butt"
	CapRound  = "round"
	CapSquare = "square"

	JoinMiter = "miter"
	JoinRound = "round"
	JoinBevel = "bevel"
)

// Context is the subset of a Canvas2D rendering context the board needs.
// Coordinates passed to path and draw calls are transformed by the current
// transform; line widths and dashes scale with it.
type Context interface {
	Save()
	Restore()
	SetTransform(m geom.Matrix2D)
	Transform() geom.Matrix2D

	ClearRect(x, y, w, h float64)
	FillRect(x, y, w, h float64)
	DrawImage(img image.Image, x, y, w, h float64)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	Rect(x, y, w, h float64)
	Arc(x, y, r, start, end float64)
	ClosePath()
	Stroke()
	Fill()

	SetStrokeStyle(color string)
	SetFillStyle(color string)
	SetLineWidth(w float64)
	SetLineCap(c string)
	SetLineJoin(j string)
	SetLineDash(d []float64)
	SetGlobalAlpha(a float64)
	SetCompositeOp(op CompositeOp)
}

// Surface supplies a drawing context together with its logical size and
// device pixel ratio. The backing store is Size * DPR device pixels.
type Surface interface {
	Size() geom.Size
	DPR() float64
	Context() Context
}

// Resizable surfaces can change size or pixel ratio after creation.
type Resizable interface {
	Resize(size geom.Size, dpr float64)
}

// Offscreener surfaces can allocate a compatible offscreen surface, used
// for double-buffered rendering.
type Offscreener interface {
	NewOffscreen() Surface
	// Image returns the current device-pixel contents.
	Image() image.Image
}

// Bitmap is a decoded image tagged with its source, so recording contexts
// can refer to it by name instead of by pixels.
type Bitmap struct {
	image.Image
	Src string
}

// DeviceSize returns the backing-store size in device pixels.
func DeviceSize(s Surface) (w, h int) {
	size, dpr := s.Size(), s.DPR()
	return int(size.Width*dpr + 0.5), int(size.Height*dpr + 0.5)
}
