package replay

import (
	"context"
	"fmt"
	"time"

	"github.com/kpatel2913/Faceable/internal/canvas"
	"github.com/kpatel2913/Faceable/internal/engine"
	"github.com/kpatel2913/Faceable/internal/gesture"
	"github.com/kpatel2913/Faceable/internal/stream"
)

// epoch anchors recording timestamps. Only differences matter to the engine.
var epoch = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// FrameResult holds the events one frame produced.
type FrameResult struct {
	Index  int             `yaml:"frame" json:"frame"`
	TimeMs float64         `yaml:"t_ms" json:"t_ms"`
	Events []gesture.Event `yaml:"events" json:"events"`
}

// Result is the outcome of replaying a recording.
type Result struct {
	Name     string          `yaml:"name,omitempty" json:"name,omitempty"`
	Frames   []FrameResult   `yaml:"frames" json:"frames"` // only frames that emitted events
	Strokes  []canvas.Stroke `yaml:"strokes,omitempty" json:"strokes,omitempty"`
	Snapshot canvas.Snapshot `yaml:"final" json:"final"`
	Dropped  int             `yaml:"dropped,omitempty" json:"dropped,omitempty"`
}

// Events flattens the per-frame events in emission order.
func (r *Result) Events() []gesture.Event {
	var out []gesture.Event
	for _, f := range r.Frames {
		out = append(out, f.Events...)
	}
	return out
}

// Discrete returns only the gesture events, without cursor moves.
func (r *Result) Discrete() []gesture.Event {
	var out []gesture.Event
	for _, ev := range r.Events() {
		if ev.IsDiscrete() {
			out = append(out, ev)
		}
	}
	return out
}

// Run replays rec through a fresh engine and canvas session.
func Run(rec *Recording, cfg engine.Config, tools []canvas.Tool, palette []string) *Result {
	eng := engine.New(cfg)
	session := canvas.NewSession(tools, palette)

	result := &Result{Name: rec.Name}
	for i, f := range rec.Frames {
		events := eng.Process(f.Input(epoch))
		if len(events) == 0 {
			continue
		}
		session.ApplyAll(events)
		result.Frames = append(result.Frames, FrameResult{Index: i, TimeMs: f.TimeMs, Events: events})
	}

	result.Strokes = session.Strokes()
	result.Snapshot = session.Snapshot()
	return result
}

// Remote streams rec to a server over c and collects its replies. The
// server's rate cap applies, so frames sent faster than it allows come back
// dropped; realtime paces sends by the recorded timestamps.
func Remote(ctx context.Context, c *stream.Client, rec *Recording, realtime bool) (*Result, error) {
	result := &Result{Name: rec.Name, Snapshot: c.Hello().State}

	res, err := c.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset session: %w", err)
	}
	if res.State != nil {
		result.Snapshot = res.State.State
	}

	start := time.Now()
	for i, f := range rec.Frames {
		if realtime {
			wait := msToDuration(f.TimeMs-rec.Frames[0].TimeMs) - time.Since(start)
			if wait > 0 {
				select {
				case <-ctx.Done():
					return result, ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ts := f.TimeMs
		res, err := c.SendFrame(stream.InboundMessage{
			Timestamp:   &ts,
			Blendshapes: f.Categories(),
			Landmark:    f.Landmark,
		})
		if err != nil {
			return result, fmt.Errorf("frame %d: %w", i, err)
		}
		if res.Dropped {
			result.Dropped++
			continue
		}
		if res.State != nil {
			result.Snapshot = res.State.State
			result.Strokes = append(result.Strokes, res.State.Strokes...)
		}
		if len(res.Events) > 0 {
			result.Frames = append(result.Frames, FrameResult{Index: i, TimeMs: f.TimeMs, Events: res.Events})
		}
	}

	// Cursor moves with the pen up carry no state reply.
	events := result.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == gesture.KindCursorMove {
			result.Snapshot.Cursor.X, result.Snapshot.Cursor.Y = events[i].X, events[i].Y
			break
		}
	}
	return result, nil
}
