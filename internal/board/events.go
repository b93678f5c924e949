package board

import (
	"fmt"
	"math"

	"github.com/noteboard/noteboard/internal/geom"
	"github.com/noteboard/noteboard/internal/input"
	"github.com/noteboard/noteboard/internal/viewport"
)

// Mode is the active tool. Modes change only through SetMode.
type Mode string

const (
	ModeDraw   Mode = "draw"
	ModeErase  Mode = "erase"
	ModeDrag   Mode = "drag"
	ModeRect   Mode = "rect"
	ModeCircle Mode = "circle"
	ModeArrow  Mode = "arrow"
	ModeNone   Mode = "none"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDraw, ModeErase, ModeDrag, ModeRect, ModeCircle, ModeArrow, ModeNone:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) isShape() bool {
	return m == ModeRect || m == ModeCircle || m == ModeArrow
}

func (m Mode) isBrush() bool {
	return m == ModeDraw || m == ModeErase
}

// Cursor values.
const (
	CursorDefault   = "default"
	CursorCrosshair = "crosshair"
	CursorGrab      = "grab"
	CursorGrabbing  = "grabbing"
)

// CursorBrush returns a CSS cursor showing a circle of the given screen
// diameter, hot spot at its center, falling back to crosshair.
func CursorBrush(diameter float64) string {
	d := int(math.Round(max(4, min(128, diameter))))
	r := d / 2
	svg := fmt.Sprintf(
		`<svg xmlns='http://www.w3.org/2000/svg' width='%d' height='%d'><circle cx='%d' cy='%d' r='%d' fill='none' stroke='black'/></svg>`,
		d+2, d+2, r+1, r+1, r,
	)
	return fmt.Sprintf(`url("data:image/svg+xml;utf8,%s") %d %d, crosshair`, svg, r+1, r+1)
}

// EventType names a board notification.
type EventType string

const (
	EventViewportChange EventType = "viewportchange"
	EventResize         EventType = "resize"
	EventShapeAdded     EventType = "shapeadded"
	EventShapeRemoved   EventType = "shaperemoved"
	EventUndo           EventType = "undo"
	EventRedo           EventType = "redo"
	EventWheel          EventType = "wheel"
	EventDragging       EventType = "dragging"
	EventMouseDown      EventType = "mousedown"
	EventMouseMove      EventType = "mousemove"
	EventMouseUp        EventType = "mouseup"
	EventMouseLeave     EventType = "mouseleave"
	EventContextMenu    EventType = "contextmenu"
	EventModeChange     EventType = "modechange"
	EventCommit         EventType = "commit"
)

// Event is a board notification. Only the fields relevant to Type are set.
type Event struct {
	Type EventType `json:"type"`

	Viewport *viewport.State     `json:"viewport,omitempty"`
	Size     *geom.Size          `json:"size,omitempty"`
	DPR      float64             `json:"dpr,omitempty"`
	ShapeID  string              `json:"shapeId,omitempty"`
	Kind     string              `json:"kind,omitempty"`
	World    *geom.Point         `json:"world,omitempty"`
	Delta    *geom.Point         `json:"delta,omitempty"`
	Pointer  *input.PointerEvent `json:"pointer,omitempty"`
	Wheel    *input.WheelEvent   `json:"wheel,omitempty"`
	Mode     Mode                `json:"mode,omitempty"`
	Cursor   string              `json:"cursor,omitempty"`
	Shapes   int                 `json:"shapes,omitempty"`
	CanUndo  bool                `json:"canUndo,omitempty"`
	CanRedo  bool                `json:"canRedo,omitempty"`
}

var pointerEvents = map[input.PointerType]EventType{
	input.PointerDown:        EventMouseDown,
	input.PointerMove:        EventMouseMove,
	input.PointerUp:          EventMouseUp,
	input.PointerLeave:       EventMouseLeave,
	input.PointerContextMenu: EventContextMenu,
}
