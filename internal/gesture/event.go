package gesture

import "fmt"

// Kind identifies the effect an Event asks the application to perform.
type Kind string

const (
	KindToolCycle  Kind = "tool_cycle"
	KindColorCycle Kind = "color_cycle"
	KindDrawToggle Kind = "draw_toggle"
	KindCursorMove Kind = "cursor_move"
)

// Event is a single emitted application event. X and Y are only meaningful
// for KindCursorMove and are expressed in percent of the canvas (0-100).
type Event struct {
	Kind Kind    `json:"kind" yaml:"kind"`
	X    float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y    float64 `json:"y,omitempty" yaml:"y,omitempty"`
}

// ToolCycle asks for the next drawing tool.
func ToolCycle() Event { return Event{Kind: KindToolCycle} }

// ColorCycle asks for the next palette colour.
func ColorCycle() Event { return Event{Kind: KindColorCycle} }

// DrawToggle flips the pen up or down.
func DrawToggle() Event { return Event{Kind: KindDrawToggle} }

// CursorMove reports the cursor at x, y percent of the canvas.
func CursorMove(x, y float64) Event {
	return Event{Kind: KindCursorMove, X: x, Y: y}
}

// IsDiscrete reports whether the event came from a debounced gesture.
func (e Event) IsDiscrete() bool {
	return e.Kind != KindCursorMove
}

// String renders the kind, plus coordinates for cursor moves.
func (e Event) String() string {
	if e.Kind == KindCursorMove {
		return fmt.Sprintf("%s(%.1f,%.1f)", e.Kind, e.X, e.Y)
	}
	return string(e.Kind)
}

// Gesture names a facial gesture the classifier detects.
type Gesture string

const (
	GestureSmile        Gesture = "smile"
	GestureEyebrowRaise Gesture = "eyebrow_raise"
	GestureMouthOpen    Gesture = "mouth_open"
)
