package document

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/noteboard/noteboard/internal/shape"
)

func TestSampleDocument_RoundTrip(t *testing.T) {
	doc := NewSampleDocument("board_test")
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(got.Shapes) != len(doc.Shapes) {
		t.Fatalf("got %d shapes, want %d", len(got.Shapes), len(doc.Shapes))
	}
	for i, s := range got.Shapes {
		want := doc.Shapes[i]
		if s.ID != want.ID || s.Kind != want.Kind || s.Start != want.Start || s.End != want.End {
			t.Errorf("shape %d = %+v, want %+v", i, s, want)
		}
	}
	brush := got.Shapes[3]
	if brush.Kind != shape.KindBrush || len(brush.Points) != 21 {
		t.Errorf("brush kind %v with %d points, want brush with 21", brush.Kind, len(brush.Points))
	}
	if got.Viewport.Zoom != 1 {
		t.Errorf("zoom = %v, want 1", got.Viewport.Zoom)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bad json", `{`},
		{"zero zoom", `{"viewport":{"zoom":0},"shapes":[]}`},
		{"missing id", `{"viewport":{"zoom":1},"shapes":[{"kind":"rect"}]}`},
		{"duplicate id", `{"viewport":{"zoom":1},"shapes":[{"id":"a","kind":"rect"},{"id":"a","kind":"circle"}]}`},
		{"unknown kind", `{"viewport":{"zoom":1},"shapes":[{"id":"a","kind":"hexagon"}]}`},
		{"bad fit", `{"viewport":{"zoom":1},"shapes":[],"underlay":{"src":"x.png","fit":"tile"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.json)); !errors.Is(err, ErrInvalidDocument) {
				t.Errorf("err = %v, want ErrInvalidDocument", err)
			}
		})
	}
}

func TestParseFit(t *testing.T) {
	if f, err := ParseFit(""); err != nil || f != FitContain {
		t.Errorf("ParseFit(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFit("cover"); err != nil || f != FitCover {
		t.Errorf("ParseFit(cover) = %q, %v", f, err)
	}
}
