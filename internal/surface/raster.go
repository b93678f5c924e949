package surface

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/noteboard/noteboard/internal/geom"
)

// Raster is an in-memory pixel surface. Paths are tracked in device space
// and rasterized with fogleman/gg; destination-out compositing is done by
// rendering into a scratch plane and using it as an erase mask.
type Raster struct {
	size geom.Size
	dpr  float64

	im      *image.RGBA
	dc      *gg.Context
	scratch *image.RGBA
	sdc     *gg.Context

	cur   rasterState
	stack []rasterState
	path  []subpath
}

type rasterState struct {
	m         geom.Matrix2D
	stroke    color.NRGBA
	fill      color.NRGBA
	lineWidth float64
	cap       string
	join      string
	dash      []float64
	alpha     float64
	op        CompositeOp
}

type subpath struct {
	pts    []geom.Point
	closed bool
}

var (
	_ Surface     = (*Raster)(nil)
	_ Context     = (*Raster)(nil)
	_ Resizable   = (*Raster)(nil)
	_ Offscreener = (*Raster)(nil)
)

// NewRaster allocates a transparent surface of size*dpr device pixels.
func NewRaster(size geom.Size, dpr float64) *Raster {
	r := &Raster{}
	r.Resize(size, dpr)
	return r
}

func defaultState() rasterState {
	return rasterState{
		m:         geom.Identity(),
		stroke:    color.NRGBA{A: 255},
		fill:      color.NRGBA{A: 255},
		lineWidth: 1,
		cap:       CapButt,
		join:      JoinMiter,
		alpha:     1,
		op:        CompositeSourceOver,
	}
}

// Resize reallocates the backing store. Contents and drawing state are reset,
// as with an HTML canvas.
func (r *Raster) Resize(size geom.Size, dpr float64) {
	if dpr <= 0 {
		dpr = 1
	}
	r.size, r.dpr = size, dpr
	w, h := DeviceSize(r)
	r.im = image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	r.dc = gg.NewContextForRGBA(r.im)
	r.scratch, r.sdc = nil, nil
	r.cur = defaultState()
	r.stack = nil
	r.path = nil
}

func (r *Raster) Size() geom.Size  { return r.size }
func (r *Raster) DPR() float64     { return r.dpr }
func (r *Raster) Context() Context { return r }

// Image returns the backing RGBA image.
func (r *Raster) Image() image.Image { return r.im }

// NewOffscreen returns a raster of the same size and ratio.
func (r *Raster) NewOffscreen() Surface { return NewRaster(r.size, r.dpr) }

// --- State ---

func (r *Raster) Save() {
	s := r.cur
	s.dash = append([]float64(nil), r.cur.dash...)
	r.stack = append(r.stack, s)
}

func (r *Raster) Restore() {
	if len(r.stack) == 0 {
		return
	}
	r.cur = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *Raster) SetTransform(m geom.Matrix2D) { r.cur.m = m }
func (r *Raster) Transform() geom.Matrix2D     { return r.cur.m }

func (r *Raster) SetStrokeStyle(c string) {
	if col, err := ParseColor(c); err == nil {
		r.cur.stroke = col
	}
}

func (r *Raster) SetFillStyle(c string) {
	if col, err := ParseColor(c); err == nil {
		r.cur.fill = col
	}
}

func (r *Raster) SetLineWidth(w float64) {
	if w > 0 {
		r.cur.lineWidth = w
	}
}

func (r *Raster) SetLineCap(c string)  { r.cur.cap = c }
func (r *Raster) SetLineJoin(j string) { r.cur.join = j }

func (r *Raster) SetLineDash(d []float64) {
	r.cur.dash = append([]float64(nil), d...)
}

func (r *Raster) SetGlobalAlpha(a float64) { r.cur.alpha = max(0, min(1, a)) }

func (r *Raster) SetCompositeOp(op CompositeOp) { r.cur.op = op }

// --- Paths ---

func (r *Raster) BeginPath() { r.path = r.path[:0] }

func (r *Raster) MoveTo(x, y float64) {
	r.path = append(r.path, subpath{pts: []geom.Point{r.cur.m.Apply(geom.Pt(x, y))}})
}

func (r *Raster) LineTo(x, y float64) {
	if len(r.path) == 0 {
		r.MoveTo(x, y)
		return
	}
	sp := &r.path[len(r.path)-1]
	sp.pts = append(sp.pts, r.cur.m.Apply(geom.Pt(x, y)))
}

func (r *Raster) Rect(x, y, w, h float64) {
	r.MoveTo(x, y)
	r.LineTo(x+w, y)
	r.LineTo(x+w, y+h)
	r.LineTo(x, y+h)
	r.ClosePath()
}

// Arc appends a clockwise arc (y down) from start to end radians, joined to
// the current subpath by a straight line as in Canvas2D.
func (r *Raster) Arc(x, y, radius, start, end float64) {
	sweep := end - start
	if math.Abs(sweep) > 2*math.Pi {
		sweep = math.Copysign(2*math.Pi, sweep)
	}
	devR := radius * r.scale()
	n := int(math.Ceil(math.Abs(sweep) * max(devR, 1) / 4))
	n = max(8, min(n, 360))
	for i := 0; i <= n; i++ {
		a := start + sweep*float64(i)/float64(n)
		px, py := x+radius*math.Cos(a), y+radius*math.Sin(a)
		if i == 0 && len(r.path) == 0 {
			r.MoveTo(px, py)
			continue
		}
		r.LineTo(px, py)
	}
}

func (r *Raster) ClosePath() {
	if len(r.path) == 0 {
		return
	}
	sp := &r.path[len(r.path)-1]
	sp.closed = true
	// Subsequent segments start a new subpath at the same point.
	r.path = append(r.path, subpath{pts: []geom.Point{sp.pts[0]}})
}

// scale is the uniform scale factor of the current transform.
func (r *Raster) scale() float64 {
	return math.Sqrt(math.Abs(r.cur.m.Determinant()))
}

func (r *Raster) tracePath(dc *gg.Context) {
	dc.ClearPath()
	for _, sp := range r.path {
		if len(sp.pts) < 2 && !sp.closed {
			continue
		}
		dc.MoveTo(sp.pts[0].X, sp.pts[0].Y)
		for _, p := range sp.pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		if sp.closed {
			dc.ClosePath()
		}
	}
}

func (r *Raster) Stroke() {
	st := r.cur
	s := r.scale()
	r.paint(func(dc *gg.Context) {
		dc.Identity()
		dc.SetColor(withAlpha(st.stroke, st.alpha))
		dc.SetLineWidth(st.lineWidth * s)
		dc.SetLineCap(ggCap(st.cap))
		dc.SetLineJoin(ggJoin(st.join))
		if len(st.dash) > 0 {
			dash := make([]float64, len(st.dash))
			for i, d := range st.dash {
				dash[i] = d * s
			}
			dc.SetDash(dash...)
		} else {
			dc.SetDash()
		}
		r.tracePath(dc)
		dc.Stroke()
	})
}

func (r *Raster) Fill() {
	st := r.cur
	r.paint(func(dc *gg.Context) {
		dc.Identity()
		dc.SetColor(withAlpha(st.fill, st.alpha))
		r.tracePath(dc)
		dc.Fill()
	})
}

func (r *Raster) FillRect(x, y, w, h float64) {
	saved := r.path
	r.path = nil
	r.Rect(x, y, w, h)
	r.Fill()
	r.path = saved
}

// ClearRect makes the transformed rect fully transparent, ignoring
// composite mode and alpha.
func (r *Raster) ClearRect(x, y, w, h float64) {
	dr := r.cur.m.TransformRect(geom.Rect{X: x, Y: y, Width: w, Height: h})
	rect := image.Rect(
		int(math.Floor(dr.X)), int(math.Floor(dr.Y)),
		int(math.Ceil(dr.Right())), int(math.Ceil(dr.Bottom())),
	).Intersect(r.im.Bounds())
	draw.Draw(r.im, rect, image.Transparent, image.Point{}, draw.Src)
}

// DrawImage draws img scaled into the (x, y, w, h) box under the current transform.
func (r *Raster) DrawImage(img image.Image, x, y, w, h float64) {
	if bm, ok := img.(*Bitmap); ok {
		if bm == nil {
			return
		}
		img = bm.Image
	}
	if img == nil {
		return
	}
	b := img.Bounds()
	if b.Empty() {
		return
	}
	if w == 0 {
		w = float64(b.Dx())
	}
	if h == 0 {
		h = float64(b.Dy())
	}
	m := r.cur.m.
		Multiply(geom.Translate(x, y)).
		Multiply(geom.Scale(w/float64(b.Dx()), h/float64(b.Dy()))).
		Multiply(geom.Translate(-float64(b.Min.X), -float64(b.Min.Y)))
	s2d := f64.Aff3{m[0], m[2], m[4], m[1], m[3], m[5]}

	var opts *draw.Options
	if r.cur.alpha < 1 {
		opts = &draw.Options{SrcMask: image.NewUniform(color.Alpha{A: uint8(r.cur.alpha*255 + 0.5)})}
	}
	r.paintImage(func(dst *image.RGBA) {
		draw.ApproxBiLinear.Transform(dst, s2d, img, b, draw.Over, opts)
	})
}

// --- Compositing ---

func (r *Raster) ensureScratch() {
	if r.scratch == nil || r.scratch.Bounds() != r.im.Bounds() {
		r.scratch = image.NewRGBA(r.im.Bounds())
		r.sdc = gg.NewContextForRGBA(r.scratch)
		return
	}
	draw.Draw(r.scratch, r.scratch.Bounds(), image.Transparent, image.Point{}, draw.Src)
}

func (r *Raster) paint(fn func(dc *gg.Context)) {
	if r.cur.op != CompositeDestinationOut {
		fn(r.dc)
		return
	}
	r.ensureScratch()
	fn(r.sdc)
	r.eraseWithScratch()
}

func (r *Raster) paintImage(fn func(dst *image.RGBA)) {
	if r.cur.op != CompositeDestinationOut {
		fn(r.im)
		return
	}
	r.ensureScratch()
	fn(r.scratch)
	r.eraseWithScratch()
}

// eraseWithScratch applies dst = dst * (1 - scratch.alpha).
func (r *Raster) eraseWithScratch() {
	draw.DrawMask(r.im, r.im.Bounds(), image.Transparent, image.Point{}, r.scratch, image.Point{}, draw.Src)
}

func ggCap(c string) gg.LineCap {
	switch c {
	case CapRound:
		return gg.LineCapRound
	case CapSquare:
		return gg.LineCapSquare
	}
	return gg.LineCapButt
}

func ggJoin(j string) gg.LineJoin {
	if j == JoinBevel {
		return gg.LineJoinBevel
	}
	// gg has no miter join; round is the closest visual match.
	return gg.LineJoinRound
}
