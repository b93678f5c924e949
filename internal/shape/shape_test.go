package shape

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/surface"
)

func pt(x, y float64) *geom.Point {
	p := geom.Pt(x, y)
	return &p
}

func TestNew_Defaults(t *testing.T) {
	s := New(KindRect, geom.Pt(1, 2), nil, DefaultStyle(), Meta{})
	if s.ID == "" {
		t.Error("ID not generated")
	}
	if s.End != s.Start {
		t.Errorf("End = %v, want Start %v", s.End, s.Start)
	}
	if !s.Visible {
		t.Error("new shape not visible")
	}

	hidden := New(KindRect, geom.Pt(0, 0), nil, DefaultStyle(), Meta{ID: "fixed", Hidden: true, ZIndex: 4})
	if hidden.ID != "fixed" || hidden.Visible || hidden.ZIndex != 4 {
		t.Errorf("meta not applied: %+v", hidden)
	}
}

func TestBounds(t *testing.T) {
	style := DefaultStyle()
	style.LineWidth = 4

	tests := []struct {
		name  string
		shape *Shape
		want  geom.Rect
	}{
		{"rect reversed", New(KindRect, geom.Pt(10, 10), pt(0, 0), style, Meta{}), geom.Rect{X: 0, Y: 0, Width: 10, Height: 10}},
		{"arrow", New(KindArrow, geom.Pt(0, 5), pt(20, 0), style, Meta{}), geom.Rect{X: 0, Y: 0, Width: 20, Height: 5}},
		{"circle", New(KindCircle, geom.Pt(10, 10), pt(13, 14), style, Meta{}), geom.Rect{X: 5, Y: 5, Width: 10, Height: 10}},
		{"image explicit", New(KindImage, geom.Pt(1, 1), nil, style, Meta{Width: 30, Height: 20}), geom.Rect{X: 1, Y: 1, Width: 30, Height: 20}},
		{"image placeholder", New(KindImage, geom.Pt(0, 0), nil, style, Meta{}), geom.Rect{Width: placeholderWidth, Height: placeholderHeight}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bounds(tt.shape); got != tt.want {
				t.Errorf("Bounds = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBounds_BrushExtrema(t *testing.T) {
	style := DefaultStyle()
	style.LineWidth = 2
	b := New(KindBrush, geom.Pt(5, 5), nil, style, Meta{})
	AppendPoint(b, geom.Pt(-5, 8))
	AppendPoint(b, geom.Pt(12, -3))

	want := geom.Rect{X: -6, Y: -4, Width: 19, Height: 13}
	if got := Bounds(b); got != want {
		t.Errorf("Bounds = %+v, want %+v", got, want)
	}
}

func TestHitTest(t *testing.T) {
	style := DefaultStyle()
	style.LineWidth = 4

	rect := New(KindRect, geom.Pt(0, 0), pt(10, 10), style, Meta{})
	circle := New(KindCircle, geom.Pt(0, 0), pt(5, 0), style, Meta{})
	arrow := New(KindArrow, geom.Pt(0, 0), pt(100, 0), style, Meta{})
	brush := New(KindBrush, geom.Pt(0, 0), nil, style, Meta{})
	AppendPoint(brush, geom.Pt(10, 0))
	AppendPoint(brush, geom.Pt(10, 10))
	img := New(KindImage, geom.Pt(0, 0), nil, style, Meta{Width: 10, Height: 10})

	tests := []struct {
		name  string
		shape *Shape
		x, y  float64
		tol   float64
		want  bool
	}{
		{"rect inside", rect, 5, 5, 0, true},
		{"rect outside", rect, 11, 5, 0, false},
		{"rect tolerance", rect, 11, 5, 2, true},
		{"circle inside", circle, 3, 3, 0, true},
		{"circle outside", circle, 4, 4, 0, false},
		{"arrow on shaft", arrow, 50, 1.9, 0, true},
		{"arrow off shaft", arrow, 50, 2.1, 0, false},
		{"arrow tolerance", arrow, 50, 4, 2.5, true},
		{"brush second segment", brush, 11, 5, 0, true},
		{"brush inside corner gap", brush, 5, 5, 0, false},
		{"image inside", img, 9, 9, 0, true},
		{"image outside", img, 10.5, 9, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HitTest(tt.shape, tt.x, tt.y, tt.tol); got != tt.want {
				t.Errorf("HitTest(%v,%v,%v) = %v, want %v", tt.x, tt.y, tt.tol, got, tt.want)
			}
		})
	}
}

func TestArrowHeadGeometry(t *testing.T) {
	style := DefaultStyle()
	style.LineWidth = 2
	a := New(KindArrow, geom.Pt(0, 0), pt(100, 0), style, Meta{})

	g := Arrow(a)
	if g.HeadLength != 8 {
		t.Fatalf("HeadLength = %v, want 8", g.HeadLength)
	}
	if d := g.ShaftEnd.Dist(a.End); math.Abs(d-8) > 1e-9 {
		t.Errorf("shaft pulled back by %v, want 8", d)
	}
	for _, p := range []geom.Point{g.Left, g.Right} {
		if d := p.Dist(g.Tip); math.Abs(d-8) > 1e-9 {
			t.Errorf("head corner %v at distance %v from tip, want 8", p, d)
		}
		if p.X < 100-8 || p.X > 100 {
			t.Errorf("head corner %v outside last 8 units of shaft", p)
		}
	}
	if math.Abs(g.Left.Y+g.Right.Y) > 1e-9 {
		t.Errorf("head not symmetric: %v %v", g.Left, g.Right)
	}

	style.LineWidth = 5
	if got := HeadLength(style.LineWidth); got != 20 {
		t.Errorf("HeadLength(5) = %v, want 20", got)
	}

	short := New(KindArrow, geom.Pt(0, 0), pt(5, 0), DefaultStyle(), Meta{})
	if g := Arrow(short); g.ShaftEnd != short.Start {
		t.Errorf("short arrow shaft end = %v, want start", g.ShaftEnd)
	}
}

func TestBrush_AppendAndSeal(t *testing.T) {
	b := New(KindBrush, geom.Pt(0, 0), nil, DefaultStyle(), Meta{})
	if !AppendPoint(b, geom.Pt(1, 1)) {
		t.Fatal("append to active brush failed")
	}
	Seal(b)
	if AppendPoint(b, geom.Pt(2, 2)) {
		t.Error("append after Seal succeeded")
	}
	if len(b.Points) != 2 {
		t.Errorf("points = %d, want 2", len(b.Points))
	}

	r := New(KindRect, geom.Pt(0, 0), nil, DefaultStyle(), Meta{})
	if AppendPoint(r, geom.Pt(1, 1)) {
		t.Error("append to rect succeeded")
	}
}

func TestTranslate_DoesNotAliasClone(t *testing.T) {
	b := New(KindBrush, geom.Pt(0, 0), pt(10, 0), DefaultStyle(), Meta{})
	snapshot := Clone(b)
	shared := *b // shares the Points backing array

	Translate(b, 5, 5)

	if b.Points[0] != geom.Pt(5, 5) || b.Start != geom.Pt(5, 5) {
		t.Errorf("translate did not move shape: %+v", b)
	}
	if snapshot.Points[0] != geom.Pt(0, 0) {
		t.Errorf("clone changed: %v", snapshot.Points)
	}
	if shared.Points[0] != geom.Pt(0, 0) {
		t.Errorf("shared backing array changed: %v", shared.Points)
	}
}

func TestDraw_RecordsExpectedOps(t *testing.T) {
	style := DefaultStyle()
	style.FillColor = "#ff0000"

	tests := []struct {
		name  string
		shape *Shape
		want  []string
	}{
		{"rect filled", New(KindRect, geom.Pt(0, 0), pt(5, 5), style, Meta{}), []string{"beginPath", "rect", "fill", "stroke"}},
		{"circle filled", New(KindCircle, geom.Pt(0, 0), pt(5, 5), style, Meta{}), []string{"beginPath", "arc", "closePath", "fill", "stroke"}},
		{"arrow", New(KindArrow, geom.Pt(0, 0), pt(50, 0), DefaultStyle(), Meta{}), []string{"beginPath", "moveTo", "lineTo", "stroke", "fillStyle", "setLineDash", "beginPath", "moveTo", "lineTo", "lineTo", "closePath", "fill"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := surface.NewRecorder(geom.Size{Width: 10, Height: 10}, 1)
			Draw(tt.shape, rec)

			ops := rec.Ops()
			if ops[0] != "save" || ops[len(ops)-1] != "restore" {
				t.Fatalf("draw not wrapped in save/restore: %v", ops)
			}
			body := drawBody(ops)
			if len(body) != len(tt.want) {
				t.Fatalf("ops = %v, want %v", body, tt.want)
			}
			for i := range tt.want {
				if body[i] != tt.want[i] {
					t.Errorf("op[%d] = %q, want %q", i, body[i], tt.want[i])
				}
			}
		})
	}
}

// drawBody strips save/restore and the style preamble from recorded ops.
func drawBody(ops []string) []string {
	i := 0
	for i < len(ops) && ops[i] != "beginPath" {
		i++
	}
	return ops[i : len(ops)-1]
}

func TestDraw_EraserUsesDestinationOut(t *testing.T) {
	style := DefaultStyle()
	style.Composite = surface.CompositeDestinationOut
	b := New(KindBrush, geom.Pt(0, 0), pt(4, 4), style, Meta{})
	if !IsEraser(b) {
		t.Fatal("IsEraser = false")
	}

	rec := surface.NewRecorder(geom.Size{Width: 10, Height: 10}, 1)
	Draw(b, rec)
	found := false
	for _, c := range rec.Commands() {
		if c.Op == "globalCompositeOperation" && c.Value == string(surface.CompositeDestinationOut) {
			found = true
		}
	}
	if !found {
		t.Error("eraser did not set destination-out")
	}
}

type fakeLoader struct {
	img   image.Image
	err   error
	calls atomic.Int32
}

func (l *fakeLoader) Load(ctx context.Context, src string) (image.Image, error) {
	l.calls.Add(1)
	return l.img, l.err
}

func waitState(t *testing.T, src *ImageSource, want LoadState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for src.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %v, want %v", src.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestImageSource_LoadOnce(t *testing.T) {
	l := &fakeLoader{img: image.NewRGBA(image.Rect(0, 0, 40, 20))}
	s := New(KindImage, geom.Pt(0, 0), nil, DefaultStyle(), Meta{Src: "a.png", Width: 80})

	var done atomic.Int32
	s.Image.Load(context.Background(), l, func() { done.Add(1) })
	s.Image.Load(context.Background(), l, func() { done.Add(1) })
	waitState(t, s.Image, StateLoaded)
	deadline := time.Now().Add(2 * time.Second)
	for done.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if l.calls.Load() != 1 {
		t.Errorf("loader calls = %d, want 1", l.calls.Load())
	}
	if done.Load() != 1 {
		t.Errorf("callbacks = %d, want 1", done.Load())
	}
	// Height derived from the 2:1 aspect ratio.
	if got := Bounds(s); got != (geom.Rect{Width: 80, Height: 40}) {
		t.Errorf("Bounds = %+v", got)
	}

	rec := surface.NewRecorder(geom.Size{Width: 10, Height: 10}, 1)
	Draw(s, rec)
	var drew bool
	for _, c := range rec.Commands() {
		if c.Op == "drawImage" && c.Image == "a.png" {
			drew = true
		}
	}
	if !drew {
		t.Errorf("loaded image not drawn: %v", rec.Ops())
	}
}

func TestImageSource_ErrorIsTerminal(t *testing.T) {
	src := NewImageSource("broken.png")
	calls := 0
	src.Resolve(nil, errors.New("decode failed"), func() { calls++ })
	src.Resolve(image.NewRGBA(image.Rect(0, 0, 1, 1)), nil, func() { calls++ })

	if src.State() != StateError {
		t.Errorf("state = %v, want error", src.State())
	}
	if calls != 1 {
		t.Errorf("callbacks = %d, want 1", calls)
	}
	if src.Bitmap() != nil {
		t.Error("bitmap set after error")
	}

	s := New(KindImage, geom.Pt(0, 0), nil, DefaultStyle(), Meta{Src: "broken.png", Width: 10, Height: 10})
	s.Image = src
	rec := surface.NewRecorder(geom.Size{Width: 10, Height: 10}, 1)
	Draw(s, rec)
	for _, c := range rec.Commands() {
		if c.Op == "drawImage" {
			t.Fatal("error state drew an image")
		}
	}
}

func TestKind_JSON(t *testing.T) {
	s := New(KindCircle, geom.Pt(1, 2), pt(3, 4), DefaultStyle(), Meta{ID: "c1"})
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back Shape
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Kind != KindCircle || back.ID != "c1" || back.End != geom.Pt(3, 4) {
		t.Errorf("decoded %+v", back)
	}

	var k Kind
	if err := k.UnmarshalText([]byte("hexagon")); err == nil {
		t.Error("unknown kind accepted")
	}
}
