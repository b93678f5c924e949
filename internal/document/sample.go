package document

import (
	"time"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/shape"
)

// NewSampleDocument returns a small board with one shape of each vector
// kind, used for the playground board.
func NewSampleDocument(boardID string) *Document {
	now := time.Now().UTC().Format(time.RFC3339)
	doc := NewEmptyDocument(boardID, "Playground", 800, 600)
	doc.Board.CreatedAt = now
	doc.Board.UpdatedAt = now

	style := shape.DefaultStyle()

	blue := style
	blue.StrokeColor = "#2563eb"
	blue.FillColor = "#dbeafe"
	rectEnd := geom.Pt(260, 180)
	rect := shape.New(shape.KindRect, geom.Pt(80, 80), &rectEnd, blue, shape.Meta{ZIndex: 1})

	red := style
	red.StrokeColor = "#dc2626"
	red.LineWidth = 3
	rim := geom.Pt(460, 130)
	circle := shape.New(shape.KindCircle, geom.Pt(400, 130), &rim, red, shape.Meta{ZIndex: 2})

	tip := geom.Pt(400, 300)
	arrow := shape.New(shape.KindArrow, geom.Pt(200, 300), &tip, style, shape.Meta{ZIndex: 3})

	green := style
	green.StrokeColor = "#16a34a"
	green.LineWidth = 4
	brush := shape.New(shape.KindBrush, geom.Pt(80, 420), nil, green, shape.Meta{ZIndex: 4})
	for i := 1; i <= 20; i++ {
		x := 80 + float64(i)*15
		y := 420 + 30*float64((i%4)-2)
		shape.AppendPoint(brush, geom.Pt(x, y))
	}
	shape.Seal(brush)

	doc.Shapes = []*shape.Shape{rect, circle, arrow, brush}
	return doc
}
