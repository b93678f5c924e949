package viewport

import (
	"errors"
	"math"
	"testing"

	"github.com/noteboard/noteboard/internal/geom"
)

const eps = 1e-9

func newTestViewport(t *testing.T) *Viewport {
	t.Helper()
	v, err := New(Options{MinZoom: 0.1, MaxZoom: 10, Zoom: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestNew_InvalidBounds(t *testing.T) {
	for _, opts := range []Options{
		{MinZoom: 0, MaxZoom: 1},
		{MinZoom: 2, MaxZoom: 1},
		{MinZoom: -1, MaxZoom: 1},
	} {
		if _, err := New(opts); !errors.Is(err, ErrInvalidZoomBounds) {
			t.Errorf("New(%+v) err = %v, want ErrInvalidZoomBounds", opts, err)
		}
	}
}

func TestNew_ClampsInitialZoom(t *testing.T) {
	v, err := New(Options{MinZoom: 0.5, MaxZoom: 2, Zoom: 5})
	if err != nil {
		t.Fatal(err)
	}
	if v.State().Zoom != 2 {
		t.Errorf("zoom = %v, want 2", v.State().Zoom)
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	states := []State{
		{PanX: 0, PanY: 0, Zoom: 1},
		{PanX: 120.5, PanY: -33, Zoom: 2.75},
		{PanX: -1000, PanY: 400, Zoom: 0.1},
		{PanX: 3, PanY: 7, Zoom: 10},
	}
	points := []geom.Point{{X: 0, Y: 0}, {X: 1.5, Y: -2}, {X: 1e4, Y: -3e3}, {X: -0.001, Y: 42}}

	for _, s := range states {
		v := newTestViewport(t)
		v.Restore(s)
		for _, p := range points {
			back := v.ScreenToWorld(v.WorldToScreen(p))
			if !back.Eq(p, 1e-6) {
				t.Errorf("state %+v: round trip %v -> %v", s, p, back)
			}
		}
	}
}

func TestSetZoom_AnchorPreserved(t *testing.T) {
	anchors := []geom.Point{{X: 100, Y: 100}, {X: -50, Y: 12.5}, {X: 0, Y: 0}}
	zooms := [][2]float64{{1, 2}, {2, 0.5}, {0.3, 7}, {9, 9}}

	for _, a := range anchors {
		for _, z := range zooms {
			v := newTestViewport(t)
			v.Restore(State{PanX: 17, PanY: -4, Zoom: z[0]})
			before := v.WorldToScreen(a)

			anchor := a
			v.SetZoom(z[1], &anchor)

			after := v.WorldToScreen(a)
			if !after.Eq(before, 1e-6) {
				t.Errorf("anchor %v zoom %v->%v: screen %v -> %v", a, z[0], z[1], before, after)
			}
		}
	}
}

func TestSetZoom_Clamps(t *testing.T) {
	v := newTestViewport(t)
	v.SetZoom(100, nil)
	if got := v.State().Zoom; got != 10 {
		t.Errorf("zoom = %v, want 10", got)
	}
	v.SetZoom(0.001, nil)
	if got := v.State().Zoom; got != 0.1 {
		t.Errorf("zoom = %v, want 0.1", got)
	}
	v.SetZoom(-3, nil)
	if got := v.State().Zoom; got != 0.1 {
		t.Errorf("zoom = %v, want 0.1", got)
	}
}

func TestZoomThenPan(t *testing.T) {
	v := newTestViewport(t)
	v.SetZoom(2, &geom.Point{X: 100, Y: 100})

	s := v.State()
	if math.Abs(s.PanX-50) > eps || math.Abs(s.PanY-50) > eps {
		t.Fatalf("pan = (%v,%v), want (50,50)", s.PanX, s.PanY)
	}

	v.PanBy(10, 0)
	s = v.State()
	if math.Abs(s.PanX-60) > eps || math.Abs(s.PanY-50) > eps {
		t.Errorf("pan = (%v,%v), want (60,50)", s.PanX, s.PanY)
	}
	if s.Zoom != 2 {
		t.Errorf("zoom = %v, want 2", s.Zoom)
	}
}

func TestVisibleWorldRect(t *testing.T) {
	v := newTestViewport(t)
	v.Restore(State{PanX: 10, PanY: 20, Zoom: 2})
	got := v.VisibleWorldRect(geom.Size{Width: 800, Height: 600})
	want := geom.Rect{X: 10, Y: 20, Width: 400, Height: 300}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestMatrix_MatchesWorldToScreen(t *testing.T) {
	v := newTestViewport(t)
	v.Restore(State{PanX: -7, PanY: 3, Zoom: 1.5})
	const dpr = 2
	p := geom.Point{X: 42, Y: -9}

	got := v.Matrix(dpr).Apply(p)
	want := v.WorldToScreen(p).Mul(dpr)
	if !got.Eq(want, 1e-9) {
		t.Errorf("Matrix(%v).Apply = %v, want %v", dpr, got, want)
	}
}

func TestOnChange_FiresOnEveryMutation(t *testing.T) {
	v := newTestViewport(t)
	var seen []State
	unsub := v.OnChange(func(s State) { seen = append(seen, s) })

	v.SetZoom(2, nil)
	v.PanBy(1, 1)
	v.SetPan(0, 0)
	v.Reset()

	if len(seen) != 4 {
		t.Fatalf("notifications = %d, want 4", len(seen))
	}
	if seen[0].Zoom != 2 {
		t.Errorf("first notification zoom = %v, want 2", seen[0].Zoom)
	}
	if seen[3] != (State{Zoom: 1}) {
		t.Errorf("after Reset = %+v, want zoom 1 pan 0", seen[3])
	}

	unsub()
	v.PanBy(1, 1)
	if len(seen) != 4 {
		t.Errorf("notification after unsubscribe")
	}
}
