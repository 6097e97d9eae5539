package stream

import (
	"errors"
	"fmt"
	"math"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/kpatel2913/Faceable/internal/canvas"
	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/engine"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message types
const (
	TypeFrame       = "frame"
	TypeReset       = "reset"
	TypeClear       = "clear"
	TypeSelectTool  = "select_tool"
	TypeSelectColor = "select_color"

	TypeHello = "hello"
	TypeEvent = "event"
	TypeState = "state"
	TypeAck   = "ack"
	TypeError = "error"
)

// Decode errors
var (
	ErrUnknownType      = errors.New("unknown message type")
	ErrInvalidTimestamp = errors.New("timestamp must be a finite number of milliseconds")
)

// InboundMessage is sent by the client. Frames carry the landmarker output
// for one video frame; timestamps are milliseconds on the client's clock.
type InboundMessage struct {
	Type        string             `json:"type"`
	Sequence    int64              `json:"sequence,omitempty"`
	Timestamp   *float64           `json:"timestamp,omitempty"`
	Blendshapes []gesture.Category `json:"blendshapes,omitempty"`
	Landmark    *cursor.Point      `json:"landmark,omitempty"`
	Landmarks   []cursor.Point     `json:"landmarks,omitempty"`

	Tool  string `json:"tool,omitempty"`  // select_tool
	Color string `json:"color,omitempty"` // select_color
}

// HelloMessage is sent once after the upgrade
type HelloMessage struct {
	Type    string          `json:"type"` // "hello"
	Session string          `json:"session"`
	State   canvas.Snapshot `json:"state"`
}

// EventMessage carries one emitted event
type EventMessage struct {
	Type      string        `json:"type"` // "event"
	Event     gesture.Event `json:"event"`
	Timestamp float64       `json:"timestamp"` // echo of the frame timestamp
}

// StateMessage follows a frame that changed the canvas
type StateMessage struct {
	Type    string          `json:"type"` // "state"
	State   canvas.Snapshot `json:"state"`
	Strokes []canvas.Stroke `json:"strokes,omitempty"` // drawn by this frame
}

// AckMessage closes the replies to one client message
type AckMessage struct {
	Type     string `json:"type"` // "ack"
	Sequence int64  `json:"sequence"`
	Dropped  bool   `json:"dropped,omitempty"`
}

// ErrorMessage reports a rejected message
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// maxTimestampMs is the largest offset a time.Duration can hold.
const maxTimestampMs = float64(math.MaxInt64 / int64(time.Millisecond))

// DecodeMessage parses one client message.
func DecodeMessage(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	switch msg.Type {
	case TypeFrame, TypeReset, TypeClear, TypeSelectTool, TypeSelectColor:
		return &msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
}

// Input converts a frame message to engine input. Client timestamps are
// offsets from epoch; a frame without one is stamped with now.
func (m *InboundMessage) Input(epoch, now time.Time) (engine.Input, error) {
	in := engine.Input{Timestamp: now}

	if m.Timestamp != nil {
		ms := *m.Timestamp
		if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxTimestampMs {
			return engine.Input{}, ErrInvalidTimestamp
		}
		in.Timestamp = epoch.Add(time.Duration(ms * float64(time.Millisecond)))
	}

	if m.Blendshapes != nil {
		in.Blendshapes = gesture.FrameFromCategories(m.Blendshapes)
	}

	switch {
	case m.Landmark != nil:
		p := *m.Landmark
		in.Landmark = &p
	case len(m.Landmarks) > 0:
		if p, ok := cursor.PointFromLandmarks(m.Landmarks); ok {
			in.Landmark = &p
		}
	}

	return in, nil
}
