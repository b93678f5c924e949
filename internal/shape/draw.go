package shape

import (
	"math"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/surface"
)

// Placeholder colors for images that are not drawable yet.
const (
	loadingFill   = "#e5e7eb"
	loadingStroke = "#9ca3af"
	errorFill     = "#fee2e2"
	errorStroke   = "#dc2626"
)

func applyStyle(ctx surface.Context, st Style) {
	ctx.SetStrokeStyle(st.StrokeColor)
	if st.FillColor != "" {
		ctx.SetFillStyle(st.FillColor)
	}
	ctx.SetLineWidth(st.LineWidth)
	lineCap := st.LineCap
	if lineCap == "" {
		lineCap = surface.CapRound
	}
	ctx.SetLineCap(lineCap)
	ctx.SetLineJoin(surface.JoinRound)
	ctx.SetLineDash(st.Dash)
	alpha := st.Opacity
	if alpha == 0 {
		alpha = 1
	}
	ctx.SetGlobalAlpha(alpha)
	op := st.Composite
	if op == "" {
		op = surface.CompositeSourceOver
	}
	ctx.SetCompositeOp(op)
}

// Draw renders the shape in world coordinates. The caller has already set
// the world-to-device transform on ctx; Draw leaves ctx state unchanged.
func Draw(s *Shape, ctx surface.Context) {
	ctx.Save()
	defer ctx.Restore()
	applyStyle(ctx, s.Style)

	switch s.Kind {
	case KindBrush:
		drawBrush(s, ctx)
	case KindRect:
		r := geom.RectFromPoints(s.Start, s.End)
		ctx.BeginPath()
		ctx.Rect(r.X, r.Y, r.Width, r.Height)
		if s.Style.FillColor != "" {
			ctx.Fill()
		}
		ctx.Stroke()
	case KindCircle:
		ctx.BeginPath()
		ctx.Arc(s.Start.X, s.Start.Y, Radius(s), 0, 2*math.Pi)
		ctx.ClosePath()
		if s.Style.FillColor != "" {
			ctx.Fill()
		}
		ctx.Stroke()
	case KindArrow:
		drawArrow(s, ctx)
	case KindImage:
		drawImage(s, ctx)
	}
}

func drawBrush(s *Shape, ctx surface.Context) {
	switch len(s.Points) {
	case 0:
		return
	case 1:
		// A click without movement leaves a round dot.
		p := s.Points[0]
		ctx.SetFillStyle(s.Style.StrokeColor)
		ctx.BeginPath()
		ctx.Arc(p.X, p.Y, s.Style.LineWidth/2, 0, 2*math.Pi)
		ctx.Fill()
		return
	}
	ctx.BeginPath()
	ctx.MoveTo(s.Points[0].X, s.Points[0].Y)
	for _, p := range s.Points[1:] {
		ctx.LineTo(p.X, p.Y)
	}
	ctx.Stroke()
}

// DrawSegment strokes only the segment from a to b with the shape's style.
// Used while a brush is being drawn to avoid repainting the whole stroke.
func DrawSegment(s *Shape, ctx surface.Context, a, b geom.Point) {
	ctx.Save()
	defer ctx.Restore()
	applyStyle(ctx, s.Style)
	ctx.BeginPath()
	ctx.MoveTo(a.X, a.Y)
	ctx.LineTo(b.X, b.Y)
	ctx.Stroke()
}

func drawArrow(s *Shape, ctx surface.Context) {
	g := Arrow(s)
	if g.ShaftEnd != s.Start {
		ctx.BeginPath()
		ctx.MoveTo(s.Start.X, s.Start.Y)
		ctx.LineTo(g.ShaftEnd.X, g.ShaftEnd.Y)
		ctx.Stroke()
	}

	ctx.SetFillStyle(s.Style.StrokeColor)
	ctx.SetLineDash(nil)
	ctx.BeginPath()
	ctx.MoveTo(g.Tip.X, g.Tip.Y)
	ctx.LineTo(g.Left.X, g.Left.Y)
	ctx.LineTo(g.Right.X, g.Right.Y)
	ctx.ClosePath()
	ctx.Fill()
}

func drawImage(s *Shape, ctx surface.Context) {
	r := ImageRect(s)
	state := StateLoading
	if s.Image != nil {
		state = s.Image.State()
	}

	switch state {
	case StateLoaded:
		ctx.DrawImage(s.Image.Bitmap(), r.X, r.Y, r.Width, r.Height)
	case StateError:
		ctx.SetFillStyle(errorFill)
		ctx.FillRect(r.X, r.Y, r.Width, r.Height)
		ctx.SetStrokeStyle(errorStroke)
		ctx.SetLineWidth(2)
		ctx.SetLineDash(nil)
		ctx.BeginPath()
		ctx.Rect(r.X, r.Y, r.Width, r.Height)
		ctx.MoveTo(r.X, r.Y)
		ctx.LineTo(r.Right(), r.Bottom())
		ctx.MoveTo(r.Right(), r.Y)
		ctx.LineTo(r.X, r.Bottom())
		ctx.Stroke()
	default:
		ctx.SetFillStyle(loadingFill)
		ctx.FillRect(r.X, r.Y, r.Width, r.Height)
		ctx.SetStrokeStyle(loadingStroke)
		ctx.SetLineWidth(1)
		ctx.SetLineDash([]float64{6, 4})
		ctx.BeginPath()
		ctx.Rect(r.X, r.Y, r.Width, r.Height)
		ctx.Stroke()
	}
}
