// Package document is the persisted form of a board: its metadata, the
// committed shapes, the viewport and the background underlay.
package document

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noteboard/noteboard/internal/shape"
	"github.com/noteboard/noteboard/internal/viewport"
)

// CurrentVersion is the document schema version written by this package.
const CurrentVersion = 1

var ErrInvalidDocument = errors.New("invalid document")

type Document struct {
	Board    Board          `json:"board"`
	Viewport viewport.State `json:"viewport"`
	Style    shape.Style    `json:"style"`
	Shapes   []*shape.Shape `json:"shapes"`
	Underlay *Underlay      `json:"underlay,omitempty"`
}

type Board struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background,omitempty"`
}

// Fit says how an underlay image is placed on the surface.
type Fit string

const (
	FitContain Fit = "contain"
	FitCover   Fit = "cover"
	FitStretch Fit = "stretch"
	FitNone    Fit = "none"
)

// ParseFit validates a fit mode. Empty means contain.
func ParseFit(s string) (Fit, error) {
	switch f := Fit(s); f {
	case "":
		return FitContain, nil
	case FitContain, FitCover, FitStretch, FitNone:
		return f, nil
	}
	return "", fmt.Errorf("unknown fit %q", s)
}

type Underlay struct {
	Src string `json:"src"`
	Fit Fit    `json:"fit"`
}

// NewEmptyDocument creates an empty document for a new board.
func NewEmptyDocument(boardID, name string, width, height int) *Document {
	return &Document{
		Board: Board{
			ID:      boardID,
			Name:    name,
			Version: CurrentVersion,
			Width:   width,
			Height:  height,
		},
		Viewport: viewport.State{Zoom: 1},
		Style:    shape.DefaultStyle(),
		Shapes:   []*shape.Shape{},
	}
}

// Parse decodes and validates a document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks that shape ids are present and unique and that the
// viewport zoom is positive.
func (d *Document) Validate() error {
	if d.Viewport.Zoom <= 0 {
		return fmt.Errorf("%w: zoom must be positive, got %v", ErrInvalidDocument, d.Viewport.Zoom)
	}
	seen := make(map[string]bool, len(d.Shapes))
	for i, s := range d.Shapes {
		if s == nil {
			return fmt.Errorf("%w: shape %d is null", ErrInvalidDocument, i)
		}
		if s.ID == "" {
			return fmt.Errorf("%w: shape %d has no id", ErrInvalidDocument, i)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate shape id %q", ErrInvalidDocument, s.ID)
		}
		seen[s.ID] = true
	}
	if d.Underlay != nil {
		if _, err := ParseFit(string(d.Underlay.Fit)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	return nil
}
