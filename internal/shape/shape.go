// Package shape implements the drawable entities of a board as a closed set
// of kinds. Behavior is provided by free functions that switch on Kind.
package shape

import (
	"fmt"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/surface"
	"github.com/noteboard/noteboard/internal/typeid"
)

// Kind identifies the variant of a Shape.
type Kind int

const (
	KindBrush Kind = iota
	KindRect
	KindCircle
	KindArrow
	KindImage
)

var kindNames = [...]string{
	KindBrush:  "brush",
	KindRect:   "rect",
	KindCircle: "circle",
	KindArrow:  "arrow",
	KindImage:  "image",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown shape kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown shape kind %q", b)
}

// Style is the stroke/fill styling of a shape.
type Style struct {
	StrokeColor string              `json:"strokeColor"`
	FillColor   string              `json:"fillColor,omitempty"`
	LineWidth   float64             `json:"lineWidth"`
	LineCap     string              `json:"lineCap,omitempty"`
	Dash        []float64           `json:"dash,omitempty"`
	Opacity     float64             `json:"opacity"`
	Composite   surface.CompositeOp `json:"composite,omitempty"`
}

// DefaultStyle is a 2px opaque black round-capped stroke.
func DefaultStyle() Style {
	return Style{
		StrokeColor: "#000000",
		LineWidth:   2,
		LineCap:     surface.CapRound,
		Opacity:     1,
		Composite:   surface.CompositeSourceOver,
	}
}

// Clone returns a copy that shares no slices with s.
func (s Style) Clone() Style {
	s.Dash = append([]float64(nil), s.Dash...)
	return s
}

// Meta carries the identity and variant-specific construction options.
type Meta struct {
	ID     string
	ZIndex int
	Hidden bool

	// Image only.
	Src    string
	Width  float64
	Height float64
}

// Shape is one entity in a scene. Start and End are world coordinates
// whose meaning depends on Kind: the corners of a Rect, the center and a
// rim point of a Circle, tail and tip of an Arrow, the top-left corner and
// optional opposite corner of an Image. A Brush keeps its path in Points.
type Shape struct {
	ID      string       `json:"id"`
	Kind    Kind         `json:"kind"`
	Start   geom.Point   `json:"start"`
	End     geom.Point   `json:"end"`
	Style   Style        `json:"style"`
	ZIndex  int          `json:"zIndex"`
	Visible bool         `json:"visible"`
	Points  []geom.Point `json:"points,omitempty"`

	Src    string       `json:"src,omitempty"`
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`
	Image  *ImageSource `json:"-"`

	sealed bool
}

// New constructs a shape. end defaults to start. A missing meta.ID is
// generated.
func New(kind Kind, start geom.Point, end *geom.Point, style Style, meta Meta) *Shape {
	id := meta.ID
	if id == "" {
		id = typeid.NewShapeID()
	}
	s := &Shape{
		ID:      id,
		Kind:    kind,
		Start:   start,
		End:     start,
		Style:   style.Clone(),
		ZIndex:  meta.ZIndex,
		Visible: !meta.Hidden,
	}
	if end != nil {
		s.End = *end
	}
	switch kind {
	case KindBrush:
		s.Points = []geom.Point{start}
		if end != nil && *end != start {
			s.Points = append(s.Points, *end)
		}
	case KindImage:
		s.Src = meta.Src
		s.Width, s.Height = meta.Width, meta.Height
		s.Image = NewImageSource(meta.Src)
	}
	return s
}

// Clone returns a deep copy suitable for a history snapshot. The image
// source is shared: a decoded bitmap is immutable and load state is
// per-source.
func Clone(s *Shape) *Shape {
	c := *s
	c.Style = s.Style.Clone()
	if s.Points != nil {
		c.Points = append([]geom.Point(nil), s.Points...)
	}
	return &c
}

// IsEraser reports whether the shape removes pixels instead of painting them.
func IsEraser(s *Shape) bool {
	return s.Style.Composite == surface.CompositeDestinationOut
}

// Sealed reports whether a brush stroke has ended.
func Sealed(s *Shape) bool {
	return s.sealed
}

// AppendPoint extends an active brush stroke. It reports false for other
// kinds and for sealed strokes.
func AppendPoint(s *Shape, p geom.Point) bool {
	if s.Kind != KindBrush || s.sealed {
		return false
	}
	s.Points = append(s.Points, p)
	s.End = p
	return true
}

// Seal ends a brush stroke; its points are immutable afterwards.
func Seal(s *Shape) {
	s.sealed = true
}

// SetEnd moves the end anchor of a shape being drawn.
func SetEnd(s *Shape, p geom.Point) {
	s.End = p
}

// Translate moves the shape by (dx, dy). Brush points are copied rather
// than modified so snapshots sharing the old slice are unaffected.
func Translate(s *Shape, dx, dy float64) {
	d := geom.Pt(dx, dy)
	s.Start = s.Start.Add(d)
	s.End = s.End.Add(d)
	if len(s.Points) > 0 {
		moved := make([]geom.Point, len(s.Points))
		for i, p := range s.Points {
			moved[i] = p.Add(d)
		}
		s.Points = moved
	}
}
