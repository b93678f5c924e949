package board

import (
	"context"
	"fmt"
	"math"

	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/shape"
)

// Document returns the persisted form of the board. Board identity fields
// (ID, Name, timestamps) are left for the caller to fill in.
func (b *Board) Document() (*document.Document, error) {
	var doc *document.Document
	err := b.do(func() error {
		doc = document.NewEmptyDocument("", "", int(math.Round(b.opts.Width)), int(math.Round(b.opts.Height)))
		doc.Board.Background = b.opts.BackgroundColor
		doc.Viewport = b.view.State()
		doc.Style = b.style.Clone()
		for _, s := range b.committedShapes() {
			doc.Shapes = append(doc.Shapes, shape.Clone(s))
		}
		if b.bg != nil {
			doc.Underlay = &document.Underlay{Src: b.bg.source.Src(), Fit: b.bg.fit}
		}
		return nil
	})
	return doc, err
}

// committedShapes is the shape set of the current history frame, so a
// document never captures a half-finished gesture.
func (b *Board) committedShapes() []*shape.Shape {
	f, ok := b.history.Current()
	if !ok {
		return nil
	}
	return f.Shapes
}

// LoadDocument replaces the board contents with doc. History restarts with
// doc as its only frame; image shapes and the underlay start loading.
func (b *Board) LoadDocument(ctx context.Context, doc *document.Document) error {
	if doc == nil {
		return fmt.Errorf("load document: %w", document.ErrInvalidDocument)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	return b.do(func() error {
		b.cancelGesture()

		for _, s := range b.scene.Inserted() {
			b.emitShape(EventShapeRemoved, s)
		}
		b.scene.Clear()
		for _, s := range doc.Shapes {
			c := shape.Clone(s)
			switch c.Kind {
			case shape.KindBrush:
				shape.Seal(c)
			case shape.KindImage:
				c.Image = shape.NewImageSource(c.Src)
				b.loadShapeImage(ctx, c)
			}
			b.scene.Add(c)
			b.emitShape(EventShapeAdded, c)
		}

		if doc.Style.LineWidth > 0 {
			st := doc.Style.Clone()
			st.Composite = ""
			b.style = st
		}
		b.opts.BackgroundColor = doc.Board.Background
		b.engine.SetBackground(doc.Board.Background)
		b.view.Restore(doc.Viewport)

		if doc.Underlay != nil {
			fit, _ := document.ParseFit(string(doc.Underlay.Fit))
			b.setBackground(ctx, doc.Underlay.Src, fit)
		} else {
			b.bg = nil
			b.paintUnderlay()
		}

		b.history.Reset()
		b.commit()
		b.refreshCursor()
		b.engine.RequestRender()
		return nil
	})
}
