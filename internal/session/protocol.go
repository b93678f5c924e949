package session

import (
	"encoding/json"

	"github.com/noteboard/noteboard/internal/board"
	"github.com/noteboard/noteboard/internal/document"
	"github.com/noteboard/noteboard/internal/surface"
)

type Message struct {
	Type     string          `json:"type"`
	BoardID  string          `json:"boardId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client to server
	TypePointer    = "pointer"
	TypeWheel      = "wheel"
	TypeMode       = "mode"
	TypeStyle      = "style"
	TypeUndo       = "undo"
	TypeRedo       = "redo"
	TypeClear      = "clear"
	TypeZoom       = "zoom"
	TypeResize     = "resize"
	TypeImage      = "image"
	TypeBackground = "background"
	TypeExport     = "export"
	TypeSave       = "save"

	// Server to client
	TypeWelcome = "welcome"
	TypeEvent   = "event"
	TypeDraw    = "draw"
	TypeSaved   = "saved"
	TypeError   = "error"
)

type WelcomePayload struct {
	ClientID string             `json:"clientId"`
	BoardID  string             `json:"boardId"`
	Mode     board.Mode         `json:"mode"`
	Cursor   string             `json:"cursor"`
	Width    float64            `json:"width"`
	Height   float64            `json:"height"`
	DPR      float64            `json:"dpr"`
	Document *document.Document `json:"document"`
}

type DrawPayload struct {
	Frame    uint64                `json:"frame,omitempty"`
	Commands []surface.DrawCommand `json:"commands"`
}

type ModePayload struct {
	Mode string `json:"mode"`
}

// StylePayload changes the stroke color, the line width, or both.
type StylePayload struct {
	StrokeColor string  `json:"strokeColor,omitempty"`
	LineWidth   float64 `json:"lineWidth,omitempty"`
}

// ZoomPayload sets an absolute zoom, or steps it with "in", "out" or
// "reset".
type ZoomPayload struct {
	Zoom float64 `json:"zoom,omitempty"`
	Step string  `json:"step,omitempty"`
}

type ResizePayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPR    float64 `json:"dpr"`
}

type ImagePayload struct {
	Src    string  `json:"src"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// BackgroundPayload replaces the underlay image. An empty Src clears it.
type BackgroundPayload struct {
	Src string       `json:"src"`
	Fit document.Fit `json:"fit,omitempty"`
}

type ExportRequest struct {
	Format  string  `json:"format"`
	Quality float64 `json:"quality,omitempty"`
}

type ExportPayload struct {
	Format  string `json:"format"`
	DataURL string `json:"dataUrl"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

type ErrorPayload struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}
