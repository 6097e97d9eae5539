// Package canvas holds the drawing state that gesture events act on: the
// selected tool and colour, whether the pen is down, and the strokes laid
// down while it is.
package canvas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

// Tool is a drawing tool the user cycles through by smiling.
type Tool struct {
	ID    string  `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Width float64 `json:"width" yaml:"width"`
	Erase bool    `json:"erase,omitempty" yaml:"erase,omitempty"`
}

var (
	ErrUnknownTool  = errors.New("unknown tool")
	ErrUnknownColor = errors.New("colour not in palette")
)

// Built-in tools.
var (
	Pen      = Tool{ID: "pen", Name: "Pen", Width: 3}
	Eraser   = Tool{ID: "eraser", Name: "Eraser", Width: 20, Erase: true}
	ThickPen = Tool{ID: "thick-pen", Name: "Thick Pen", Width: 8}
)

// DefaultTools is the cycle order for ToolCycle events.
var DefaultTools = []Tool{Pen, Eraser, ThickPen}

// DefaultPalette is the cycle order for ColorCycle events.
var DefaultPalette = []string{
	"#6366f1", // indigo
	"#8b5cf6", // purple
	"#ec4899", // pink
	"#f43f5e", // rose
	"#f97316", // orange
	"#eab308", // yellow
	"#22c59e", // green
	"#14b8a6", // teal
	"#3b82f6", // blue
	"#1e293b", // dark gray
}

// Stroke is one line segment in canvas percent coordinates.
type Stroke struct {
	From  cursor.Position `json:"from" yaml:"from"`
	To    cursor.Position `json:"to" yaml:"to"`
	Color string          `json:"color" yaml:"color"`
	Width float64         `json:"width" yaml:"width"`
	Erase bool            `json:"erase,omitempty" yaml:"erase,omitempty"`
}

// Snapshot is the externally visible session state.
type Snapshot struct {
	Tool    string          `json:"tool" yaml:"tool"`
	Color   string          `json:"color" yaml:"color"`
	Drawing bool            `json:"drawing" yaml:"drawing"`
	Cursor  cursor.Position `json:"cursor" yaml:"cursor"`
	Strokes int             `json:"strokes" yaml:"strokes"`
}

// Session applies gesture events to drawing state. Not safe for concurrent
// use.
type Session struct {
	tools   []Tool
	palette []string

	tool    int
	color   int
	drawing bool
	cursor  cursor.Position

	// lastPoint is where the next stroke starts; nil until the cursor has
	// moved with the pen down.
	lastPoint *cursor.Position
	strokes   []Stroke
}

// NewSession starts with the first tool and colour, pen up, cursor centred.
// Empty tools or palette fall back to the defaults.
func NewSession(tools []Tool, palette []string) *Session {
	if len(tools) == 0 {
		tools = DefaultTools
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Session{
		tools:   tools,
		palette: palette,
		cursor:  cursor.Center,
	}
}

// Apply updates the session for one event. It returns the stroke drawn by a
// cursor move, if any, and whether the snapshot changed.
func (s *Session) Apply(ev gesture.Event) (*Stroke, bool) {
	switch ev.Kind {
	case gesture.KindToolCycle:
		s.tool = (s.tool + 1) % len(s.tools)
		return nil, true

	case gesture.KindColorCycle:
		s.color = (s.color + 1) % len(s.palette)
		return nil, true

	case gesture.KindDrawToggle:
		s.drawing = !s.drawing
		if !s.drawing {
			s.lastPoint = nil
		}
		return nil, true

	case gesture.KindCursorMove:
		s.cursor = cursor.Position{X: ev.X, Y: ev.Y}
		if !s.drawing {
			return nil, false
		}
		to := s.cursor
		if s.lastPoint == nil {
			s.lastPoint = &to
			return nil, false
		}
		tool := s.tools[s.tool]
		stroke := Stroke{
			From:  *s.lastPoint,
			To:    to,
			Color: s.palette[s.color],
			Width: tool.Width,
			Erase: tool.Erase,
		}
		s.strokes = append(s.strokes, stroke)
		s.lastPoint = &to
		return &stroke, true
	}
	return nil, false
}

// ApplyAll applies events in order and returns the strokes they drew.
func (s *Session) ApplyAll(events []gesture.Event) ([]Stroke, bool) {
	var (
		strokes []Stroke
		changed bool
	)
	for _, ev := range events {
		stroke, c := s.Apply(ev)
		if stroke != nil {
			strokes = append(strokes, *stroke)
		}
		changed = changed || c
	}
	return strokes, changed
}

// Tool returns the selected tool.
func (s *Session) Tool() Tool {
	return s.tools[s.tool]
}

// Color returns the selected palette colour.
func (s *Session) Color() string {
	return s.palette[s.color]
}

// Drawing reports whether the pen is down.
func (s *Session) Drawing() bool {
	return s.drawing
}

// Strokes returns a copy of every stroke drawn since the last clear.
func (s *Session) Strokes() []Stroke {
	out := make([]Stroke, len(s.strokes))
	copy(out, s.strokes)
	return out
}

// Clear drops every stroke but keeps tool, colour and pen state.
func (s *Session) Clear() {
	s.strokes = nil
	s.lastPoint = nil
}

// SelectTool picks a tool by ID. The pen state is kept.
func (s *Session) SelectTool(id string) error {
	for i, t := range s.tools {
		if t.ID == id {
			s.tool = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTool, id)
}

// SelectColor picks a palette colour, matched case-insensitively.
func (s *Session) SelectColor(color string) error {
	for i, c := range s.palette {
		if strings.EqualFold(c, color) {
			s.color = i
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownColor, color)
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Tool:    s.tools[s.tool].ID,
		Color:   s.palette[s.color],
		Drawing: s.drawing,
		Cursor:  s.cursor,
		Strokes: len(s.strokes),
	}
}
