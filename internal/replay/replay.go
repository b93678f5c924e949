// Package replay drives a board from a scripted list of steps, for
// reproducing drawings headlessly.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/input"
)

// Script is a board configuration, an optional starting document and the
// steps to apply to it.
type Script struct {
	Options  board.Options      `json:"options"`
	Document *document.Document `json:"document,omitempty"`
	Steps    []Step             `json:"steps"`
}

// Step is one scripted action. Op selects which of the other fields apply.
type Step struct {
	Op string `json:"op"`

	Pointer *input.PointerEvent `json:"pointer,omitempty"`
	Wheel   *input.WheelEvent   `json:"wheel,omitempty"`

	Mode        string  `json:"mode,omitempty"`
	StrokeColor string  `json:"strokeColor,omitempty"`
	LineWidth   float64 `json:"lineWidth,omitempty"`
	Zoom        float64 `json:"zoom,omitempty"`
	DX          float64 `json:"dx,omitempty"`
	DY          float64 `json:"dy,omitempty"`

	Src    string       `json:"src,omitempty"`
	Fit    document.Fit `json:"fit,omitempty"`
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`
	Width  float64      `json:"width,omitempty"`
	Height float64      `json:"height,omitempty"`

	// Path is a shorthand for a left-button drag through the points.
	Path []geom.Point `json:"path,omitempty"`
}

// Parse decodes a script. Unknown fields are rejected so typos surface.
func Parse(r io.Reader) (*Script, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if s.Options == (board.Options{}) {
		s.Options = board.DefaultOptions()
	}
	return &s, nil
}

// Run applies the script to b and waits for the images it loads. It
// stops at the first failing step.
func (s *Script) Run(ctx context.Context, b *board.Board) error {
	if s.Document != nil {
		if err := b.LoadDocument(ctx, s.Document); err != nil {
			return err
		}
	}
	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := apply(ctx, b, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, st.Op, err)
		}
	}
	return b.WaitImages(ctx)
}

func apply(ctx context.Context, b *board.Board, st Step) error {
	switch st.Op {
	case "pointer":
		if st.Pointer == nil {
			return errors.New("missing pointer event")
		}
		return b.HandlePointer(*st.Pointer)
	case "wheel":
		if st.Wheel == nil {
			return errors.New("missing wheel event")
		}
		return b.HandleWheel(*st.Wheel)
	case "drag":
		return drag(b, st.Path)
	case "mode":
		return b.SetMode(board.Mode(st.Mode))
	case "style":
		if st.StrokeColor != "" {
			if err := b.SetStrokeColor(st.StrokeColor); err != nil {
				return err
			}
		}
		if st.LineWidth != 0 {
			return b.SetLineWidth(st.LineWidth)
		}
		return nil
	case "undo":
		_, err := b.Undo()
		return err
	case "redo":
		_, err := b.Redo()
		return err
	case "clear":
		return b.Clear()
	case "zoom":
		return b.Zoom(st.Zoom)
	case "pan":
		return b.PanBy(st.DX, st.DY)
	case "reset":
		return b.ResetView()
	case "image":
		_, err := b.AddImage(ctx, st.Src, geom.Pt(st.X, st.Y), st.Width, st.Height)
		return err
	case "background":
		if st.Src == "" {
			return b.ClearBackgroundImage()
		}
		return b.DrawBackgroundImage(ctx, st.Src, st.Fit)
	}
	return fmt.Errorf("unknown op %q", st.Op)
}

func drag(b *board.Board, path []geom.Point) error {
	if len(path) < 2 {
		return errors.New("drag needs at least two points")
	}
	for i, p := range path {
		typ := input.PointerMove
		switch i {
		case 0:
			typ = input.PointerDown
		case len(path) - 1:
			if err := b.HandlePointer(input.PointerEvent{Type: input.PointerMove, X: p.X, Y: p.Y}); err != nil {
				return err
			}
			typ = input.PointerUp
		}
		if err := b.HandlePointer(input.PointerEvent{Type: typ, X: p.X, Y: p.Y}); err != nil {
			return err
		}
	}
	return nil
}
