// Package input defines the normalized pointer and wheel events a board
// consumes. Coordinates are in the surface's local logical space.
package input

import "fmt"

// PointerType is the phase of a pointer event.
type PointerType string

const (
	PointerDown        PointerType = "down"
	PointerMove        PointerType = "move"
	PointerUp          PointerType = "up"
	PointerLeave       PointerType = "leave"
	PointerCancel      PointerType = "cancel"
	PointerContextMenu PointerType = "contextmenu"
)

// Mouse buttons, as in DOM MouseEvent.button.
const (
	ButtonLeft   = 0
	ButtonMiddle = 1
	ButtonRight  = 2
)

// PointerEvent is one normalized pointer sample.
type PointerEvent struct {
	Type      PointerType `json:"type"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	ClientX   float64     `json:"clientX"`
	ClientY   float64     `json:"clientY"`
	Button    int         `json:"button"`
	PointerID int         `json:"pointerId"`
}

// Validate rejects unknown event types.
func (e PointerEvent) Validate() error {
	switch e.Type {
	case PointerDown, PointerMove, PointerUp, PointerLeave, PointerCancel, PointerContextMenu:
		return nil
	}
	return fmt.Errorf("unknown pointer event type %q", e.Type)
}

// WheelEvent is one wheel tick. Negative DeltaY scrolls up, which zooms in.
type WheelEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DeltaY float64 `json:"deltaY"`
}
