package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/shape"
)

func run(t *testing.T, script string) (*board.Board, error) {
	t.Helper()
	s, err := Parse(strings.NewReader(script))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b, err := board.NewHeadless(s.Options, board.WithFrameSource(render.NewManualSource()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Dispose() })
	return b, s.Run(context.Background(), b)
}

func TestRun_DrawsShapes(t *testing.T) {
	b, err := run(t, `{
		"options": {"width": 300, "height": 200},
		"steps": [
			{"op": "style", "strokeColor": "#ff0000", "lineWidth": 4},
			{"op": "drag", "path": [{"x": 10, "y": 10}, {"x": 40, "y": 30}, {"x": 60, "y": 20}]},
			{"op": "mode", "mode": "rect"},
			{"op": "drag", "path": [{"x": 100, "y": 100}, {"x": 150, "y": 140}]},
			{"op": "mode", "mode": "arrow"},
			{"op": "pointer", "pointer": {"type": "down", "x": 200, "y": 20}},
			{"op": "pointer", "pointer": {"type": "move", "x": 260, "y": 80}},
			{"op": "pointer", "pointer": {"type": "up", "x": 260, "y": 80}}
		]
	}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	shapes := b.Shapes()
	want := []shape.Kind{shape.KindBrush, shape.KindRect, shape.KindArrow}
	if len(shapes) != len(want) {
		t.Fatalf("got %d shapes, want %d", len(shapes), len(want))
	}
	for i, k := range want {
		if shapes[i].Kind != k {
			t.Errorf("shape %d kind = %v, want %v", i, shapes[i].Kind, k)
		}
	}
	if shapes[0].Style.StrokeColor != "#ff0000" || shapes[0].Style.LineWidth != 4 {
		t.Errorf("brush style = %+v", shapes[0].Style)
	}
	if size, _ := b.Size(); size.Width != 300 {
		t.Errorf("board width = %v, want 300", size.Width)
	}
}

func TestRun_UndoAndView(t *testing.T) {
	b, err := run(t, `{
		"steps": [
			{"op": "drag", "path": [{"x": 10, "y": 10}, {"x": 20, "y": 20}]},
			{"op": "drag", "path": [{"x": 30, "y": 30}, {"x": 40, "y": 40}]},
			{"op": "undo"},
			{"op": "zoom", "zoom": 2},
			{"op": "pan", "dx": 5, "dy": -5}
		]
	}`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := len(b.Shapes()); n != 1 {
		t.Errorf("shapes after undo = %d, want 1", n)
	}
	if !b.CanRedo() {
		t.Error("undo step left nothing to redo")
	}
	if z := b.Viewport().Zoom; z != 2 {
		t.Errorf("zoom = %v, want 2", z)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"unknown op", `{"steps": [{"op": "teleport"}]}`, `step 0 (teleport)`},
		{"short drag", `{"steps": [{"op": "drag", "path": [{"x": 1, "y": 1}]}]}`, "two points"},
		{"bad mode", `{"steps": [{"op": "undo"}, {"op": "mode", "mode": "lasso"}]}`, `step 1 (mode)`},
		{"missing pointer", `{"steps": [{"op": "pointer"}]}`, "missing pointer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.script)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Run err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	if _, err := Parse(strings.NewReader(`{"stpes": []}`)); err == nil {
		t.Error("Parse accepted a misspelled field")
	}
}
