package shape

import (
	"math"

	"github.com/noteboard/noteboard/internal/geom"
)

// Placeholder size for images whose size is not yet known.
const (
	placeholderWidth  = 160
	placeholderHeight = 120
)

const (
	arrowMinHead   = 8
	arrowHeadScale = 4
	arrowHalfAngle = math.Pi / 6
)

// Radius returns the radius of a circle: the distance from Start to End.
func Radius(s *Shape) float64 {
	return s.Start.Dist(s.End)
}

// ImageRect returns the world box an image shape occupies. Explicit size
// wins; a single explicit dimension is completed from the aspect ratio;
// otherwise the anchor box, the natural size, or a placeholder is used.
func ImageRect(s *Shape) geom.Rect {
	w, h := s.Width, s.Height
	nw, nh, loaded := 0.0, 0.0, false
	if s.Image != nil {
		nw, nh, loaded = s.Image.NaturalSize()
	}
	switch {
	case w > 0 && h > 0:
	case w > 0 && loaded && nw > 0:
		h = w * nh / nw
	case h > 0 && loaded && nh > 0:
		w = h * nw / nh
	case s.End != s.Start:
		return geom.RectFromPoints(s.Start, s.End)
	case loaded:
		w, h = nw, nh
	default:
		w, h = placeholderWidth, placeholderHeight
	}
	if w <= 0 {
		w = placeholderWidth
	}
	if h <= 0 {
		h = placeholderHeight
	}
	return geom.Rect{X: s.Start.X, Y: s.Start.Y, Width: w, Height: h}
}

// Bounds returns the axis-aligned world box of the shape's geometry.
// Stroke width is not included, except for brush strokes whose extent is
// defined by their stroked path.
func Bounds(s *Shape) geom.Rect {
	switch s.Kind {
	case KindBrush:
		if len(s.Points) == 0 {
			return geom.RectFromPoints(s.Start, s.End)
		}
		minX, minY := s.Points[0].X, s.Points[0].Y
		maxX, maxY := minX, minY
		for _, p := range s.Points[1:] {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
		r := geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
		return r.Inset(s.Style.LineWidth / 2)
	case KindCircle:
		r := Radius(s)
		return geom.Rect{X: s.Start.X - r, Y: s.Start.Y - r, Width: 2 * r, Height: 2 * r}
	case KindImage:
		return ImageRect(s)
	default:
		return geom.RectFromPoints(s.Start, s.End)
	}
}

// HitTest reports whether world point (x, y) is on the shape. Rects and
// circles test containment, strokes test distance to each segment against
// half the line width plus tolerance, images test their box.
func HitTest(s *Shape, x, y, tolerance float64) bool {
	p := geom.Pt(x, y)
	switch s.Kind {
	case KindRect:
		return geom.RectFromPoints(s.Start, s.End).Inset(tolerance).Contains(x, y)
	case KindCircle:
		return s.Start.Dist(p) <= Radius(s)+tolerance
	case KindArrow:
		return geom.SegmentDistance(p, s.Start, s.End) <= s.Style.LineWidth/2+tolerance
	case KindBrush:
		limit := s.Style.LineWidth/2 + tolerance
		switch len(s.Points) {
		case 0:
			return false
		case 1:
			return s.Points[0].Dist(p) <= limit
		}
		for i := 1; i < len(s.Points); i++ {
			if geom.SegmentDistance(p, s.Points[i-1], s.Points[i]) <= limit {
				return true
			}
		}
		return false
	case KindImage:
		return ImageRect(s).Inset(tolerance).Contains(x, y)
	}
	return false
}

// ArrowGeometry describes how an arrow is drawn: a shaft from Start to
// ShaftEnd and a filled triangle Tip/Left/Right.
type ArrowGeometry struct {
	HeadLength float64
	Angle      float64
	ShaftEnd   geom.Point
	Tip        geom.Point
	Left       geom.Point
	Right      geom.Point
}

// HeadLength returns the arrow head length for a line width: max(8, 4*w).
func HeadLength(lineWidth float64) float64 {
	return max(arrowMinHead, lineWidth*arrowHeadScale)
}

// Arrow computes the arrow geometry. The shaft is pulled back from the tip
// by the head length so the stroke does not poke through the head; arrows
// shorter than the head have no shaft.
func Arrow(s *Shape) ArrowGeometry {
	head := HeadLength(s.Style.LineWidth)
	angle := math.Atan2(s.End.Y-s.Start.Y, s.End.X-s.Start.X)
	g := ArrowGeometry{
		HeadLength: head,
		Angle:      angle,
		Tip:        s.End,
		ShaftEnd:   s.Start,
	}
	if s.Start.Dist(s.End) > head {
		g.ShaftEnd = geom.Pt(s.End.X-head*math.Cos(angle), s.End.Y-head*math.Sin(angle))
	}
	g.Left = geom.Pt(s.End.X-head*math.Cos(angle-arrowHalfAngle), s.End.Y-head*math.Sin(angle-arrowHalfAngle))
	g.Right = geom.Pt(s.End.X-head*math.Cos(angle+arrowHalfAngle), s.End.Y-head*math.Sin(angle+arrowHalfAngle))
	return g
}
