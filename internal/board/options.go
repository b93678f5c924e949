package board

import (
	"fmt"
	"log/slog"

	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/surface"
)

// Options configures a board. Start from DefaultOptions; zero numeric
// fields fall back to their defaults.
type Options struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPR    float64 `json:"dpr"`

	MinZoom float64 `json:"minZoom"`
	MaxZoom float64 `json:"maxZoom"`
	Zoom    float64 `json:"zoom"`
	PanX    float64 `json:"panX"`
	PanY    float64 `json:"panY"`

	StrokeStyle     string  `json:"strokeStyle"`
	LineWidth       float64 `json:"lineWidth"`
	LineCap         string  `json:"lineCap"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`

	EnableRightDrag bool `json:"enableRightDrag"`

	DrawComposite  surface.CompositeOp `json:"drawComposite"`
	EraseComposite surface.CompositeOp `json:"eraseComposite"`
	ShapeComposite surface.CompositeOp `json:"shapeComposite"`

	DoubleBuffer        bool `json:"doubleBuffer"`
	ContinuousRendering bool `json:"continuousRendering"`
}

// DefaultOptions returns an 800x600 board at DPR 1 with zoom in [0.1, 10],
// a 2px round black stroke, and right-button panning.
func DefaultOptions() Options {
	return Options{
		Width:           800,
		Height:          600,
		DPR:             1,
		MinZoom:         0.1,
		MaxZoom:         10,
		Zoom:            1,
		StrokeStyle:     "#000000",
		LineWidth:       2,
		LineCap:         surface.CapRound,
		EnableRightDrag: true,
		DrawComposite:   surface.CompositeSourceOver,
		EraseComposite:  surface.CompositeDestinationOut,
		ShapeComposite:  surface.CompositeSourceOver,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.DPR <= 0 {
		o.DPR = d.DPR
	}
	if o.MinZoom == 0 {
		o.MinZoom = d.MinZoom
	}
	if o.MaxZoom == 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.Zoom == 0 {
		o.Zoom = d.Zoom
	}
	if o.StrokeStyle == "" {
		o.StrokeStyle = d.StrokeStyle
	}
	if o.LineWidth <= 0 {
		o.LineWidth = d.LineWidth
	}
	if o.LineCap == "" {
		o.LineCap = d.LineCap
	}
	if o.DrawComposite == "" {
		o.DrawComposite = d.DrawComposite
	}
	if o.EraseComposite == "" {
		o.EraseComposite = d.EraseComposite
	}
	if o.ShapeComposite == "" {
		o.ShapeComposite = d.ShapeComposite
	}
	return o
}

func (o Options) validate() error {
	if _, err := surface.ParseColor(o.StrokeStyle); err != nil {
		return fmt.Errorf("stroke style: %w", err)
	}
	if o.BackgroundColor != "" {
		if _, err := surface.ParseColor(o.BackgroundColor); err != nil {
			return fmt.Errorf("background color: %w", err)
		}
	}
	for _, op := range []surface.CompositeOp{o.DrawComposite, o.EraseComposite, o.ShapeComposite} {
		if _, err := surface.ParseCompositeOp(string(op)); err != nil {
			return err
		}
	}
	return nil
}

func (o Options) baseStyle() shape.Style {
	st := shape.DefaultStyle()
	st.StrokeColor = o.StrokeStyle
	st.LineWidth = o.LineWidth
	st.LineCap = o.LineCap
	return st
}

// Option sets a collaborator of a board.
type Option func(*Board)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) { b.logger = l }
}

// WithLoader sets the image loader used by image shapes and underlays.
func WithLoader(l shape.Loader) Option {
	return func(b *Board) { b.loader = l }
}

// WithFrameSource sets the frame clock driving the render loop. The default
// ticks at 60fps.
func WithFrameSource(src render.FrameSource) Option {
	return func(b *Board) { b.frames = src }
}

// WithUnderlay sets the surface the background image plane draws into.
// By default it is an offscreen of the main surface or an in-memory raster.
func WithUnderlay(s surface.Surface) Option {
	return func(b *Board) { b.underlay = s }
}
