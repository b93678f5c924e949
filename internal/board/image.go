package board

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/export"
	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/render"
	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/surface"
)

// background is the image drawn on the underlay plane, beneath the shapes.
// It is placed in screen space and does not pan or zoom.
type background struct {
	source *shape.ImageSource
	fit    document.Fit
}

// ImageInfo describes the underlay image once it has loaded.
type ImageInfo struct {
	Src           string       `json:"src"`
	Fit           document.Fit `json:"fit"`
	NaturalWidth  float64      `json:"naturalWidth"`
	NaturalHeight float64      `json:"naturalHeight"`
	Rect          geom.Rect    `json:"rect"`
}

// AddImage places an image shape with its top-left corner at the world
// point at and commits it. A zero w or h is derived from the image's
// natural size once loaded. The load runs on ctx; the shape draws a
// placeholder until it finishes, and keeps it if the load fails.
func (b *Board) AddImage(ctx context.Context, src string, at geom.Point, w, h float64) (string, error) {
	if src == "" {
		return "", errors.New("add image: empty source")
	}
	if w < 0 || h < 0 {
		return "", fmt.Errorf("add image: negative size %vx%v", w, h)
	}
	var id string
	err := b.do(func() error {
		b.finishGesture()
		s := shape.New(shape.KindImage, at, nil, b.imageStyle(), shape.Meta{
			ZIndex: b.scene.MaxZIndex() + 1,
			Src:    src,
			Width:  w,
			Height: h,
		})
		b.scene.Add(s)
		b.commit()
		b.emitShape(EventShapeAdded, s)
		b.engine.RequestRender()
		b.loadShapeImage(ctx, s)
		id = s.ID
		return nil
	})
	return id, err
}

// imageStyle paints over existing ink whatever the current mode is.
func (b *Board) imageStyle() shape.Style {
	st := b.style.Clone()
	st.Composite = surface.CompositeSourceOver
	return st
}

func (b *Board) loadShapeImage(ctx context.Context, s *shape.Shape) {
	engine := b.engine
	b.startLoad(ctx, s.Image, engine.RequestRender)
}

// startLoad loads src on ctx, also cancelled by Dispose, then calls onDone.
func (b *Board) startLoad(ctx context.Context, src *shape.ImageSource, onDone func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.loadCtx, cancel)
	b.loads.start()
	src.Load(ctx, b.loader, func() {
		stop()
		cancel()
		onDone()
		b.loads.done()
	})
}

// WaitImages blocks until every image load started so far has finished.
func (b *Board) WaitImages(ctx context.Context) error {
	return b.loads.wait(ctx)
}

// loadTracker counts image loads in flight.
type loadTracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (t *loadTracker) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *loadTracker) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

func (t *loadTracker) wait(ctx context.Context) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrawBackgroundImage replaces the underlay image. It returns once the load
// has started; the underlay is repainted when it completes.
func (b *Board) DrawBackgroundImage(ctx context.Context, src string, fit document.Fit) error {
	if src == "" {
		return errors.New("draw background image: empty source")
	}
	fit, err := document.ParseFit(string(fit))
	if err != nil {
		return fmt.Errorf("draw background image: %w", err)
	}
	return b.do(func() error {
		b.setBackground(ctx, src, fit)
		return nil
	})
}

func (b *Board) setBackground(ctx context.Context, src string, fit document.Fit) {
	bg := &background{source: shape.NewImageSource(src), fit: fit}
	b.bg = bg
	b.paintUnderlay()
	b.startLoad(ctx, bg.source, func() {
		_ = b.do(func() error {
			if b.bg == bg {
				b.paintUnderlay()
				b.engine.RequestRender()
			}
			return nil
		})
	})
}

// ClearBackgroundImage removes the underlay image.
func (b *Board) ClearBackgroundImage() error {
	return b.do(func() error {
		b.bg = nil
		b.paintUnderlay()
		return nil
	})
}

// ImageInfo returns the underlay image's placement. It fails with
// ErrNoImage until a background image has been drawn.
func (b *Board) ImageInfo() (ImageInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disposed {
		return ImageInfo{}, ErrDisposed
	}
	if b.bg == nil || b.bg.source.State() != shape.StateLoaded {
		return ImageInfo{}, ErrNoImage
	}
	w, h, _ := b.bg.source.NaturalSize()
	return ImageInfo{
		Src:           b.bg.source.Src(),
		Fit:           b.bg.fit,
		NaturalWidth:  w,
		NaturalHeight: h,
		Rect:          fitRect(b.bg.fit, w, h, b.surf.Size()),
	}, nil
}

// fitRect places an iw x ih image inside a surface of the given size.
func fitRect(fit document.Fit, iw, ih float64, size geom.Size) geom.Rect {
	if iw <= 0 || ih <= 0 {
		return geom.Rect{}
	}
	var w, h float64
	switch fit {
	case document.FitStretch:
		return geom.Rect{Width: size.Width, Height: size.Height}
	case document.FitCover:
		s := max(size.Width/iw, size.Height/ih)
		w, h = iw*s, ih*s
	case document.FitNone:
		w, h = iw, ih
	default:
		s := min(size.Width/iw, size.Height/ih)
		w, h = iw*s, ih*s
	}
	return geom.Rect{X: (size.Width - w) / 2, Y: (size.Height - h) / 2, Width: w, Height: h}
}

// paintUnderlay redraws the underlay plane.
func (b *Board) paintUnderlay() {
	if b.underlay == nil {
		return
	}
	if ctx := b.underlay.Context(); ctx != nil {
		b.drawUnderlay(ctx, b.underlay.Size(), b.underlay.DPR())
	}
}

func (b *Board) drawUnderlay(ctx surface.Context, size geom.Size, dpr float64) {
	ctx.Save()
	defer ctx.Restore()
	ctx.SetTransform(geom.Scale(dpr, dpr))
	ctx.ClearRect(0, 0, size.Width, size.Height)
	if b.bg == nil || b.bg.source.State() != shape.StateLoaded {
		return
	}
	w, h, _ := b.bg.source.NaturalSize()
	r := fitRect(b.bg.fit, w, h, size)
	ctx.DrawImage(b.bg.source.Bitmap(), r.X, r.Y, r.Width, r.Height)
}

// Resize changes the logical size and pixel ratio of both planes. The
// surface must implement surface.Resizable.
func (b *Board) Resize(width, height, dpr float64) error {
	if width <= 0 || height <= 0 || dpr <= 0 {
		return fmt.Errorf("resize: invalid size %vx%v@%v", width, height, dpr)
	}
	return b.do(func() error {
		r, ok := b.surf.(surface.Resizable)
		if !ok {
			return ErrNotResizable
		}
		size := geom.Size{Width: width, Height: height}
		r.Resize(size, dpr)
		if u, ok := b.underlay.(surface.Resizable); ok {
			u.Resize(size, dpr)
		}
		b.opts.Width, b.opts.Height, b.opts.DPR = width, height, dpr
		b.paintUnderlay()
		b.engine.RequestRender()
		b.emit(Event{Type: EventResize, Size: &size, DPR: dpr})
		return nil
	})
}

// Snapshot renders both planes into a new image at device resolution: the
// underlay first, then the background color and shapes composited over it.
func (b *Board) Snapshot() (image.Image, error) {
	var out image.Image
	err := b.do(func() error {
		size := geom.Size{Width: b.opts.Width, Height: b.opts.Height}
		dpr := b.opts.DPR

		under := surface.NewRaster(size, dpr)
		b.drawUnderlay(under, size, dpr)

		drawing := surface.NewRaster(size, dpr)
		render.Paint(drawing, size, dpr, b.view, b.scene, b.opts.BackgroundColor, cullPadding)

		w, h := surface.DeviceSize(under)
		under.Save()
		under.SetTransform(geom.Identity())
		under.DrawImage(drawing.Image(), 0, 0, float64(w), float64(h))
		under.Restore()
		out = under.Image()
		return nil
	})
	return out, err
}

// Export encodes a snapshot of the board as a data URL. format is png,
// jpeg or pdf; quality applies to jpeg and defaults to 0.92 when out of
// (0, 1].
func (b *Board) Export(ctx context.Context, format string, quality float64) (string, error) {
	if _, err := export.ParseFormat(format); err != nil {
		return "", err
	}
	img, err := b.Snapshot()
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("export: %w", err)
	}
	return export.DataURL(img, format, quality)
}
