package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/gesture"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(ms int) time.Time {
	return epoch.Add(time.Duration(ms) * time.Millisecond)
}

func point(x, y float64) *cursor.Point {
	return &cursor.Point{X: x, Y: y}
}

func discrete(events []gesture.Event) []gesture.Kind {
	var out []gesture.Kind
	for _, e := range events {
		if e.IsDiscrete() {
			out = append(out, e.Kind)
		}
	}
	return out
}

func TestEngine_EventOrder(t *testing.T) {
	e := New(DefaultConfig())

	// Settle the head so the eyebrow gate opens.
	for ms := 0; ms <= 300; ms += 50 {
		e.Process(Input{Timestamp: at(ms), Landmark: point(0.5, 0.5), Blendshapes: gesture.Frame{}})
	}

	events := e.Process(Input{
		Timestamp: at(350),
		Landmark:  point(0.5, 0.5),
		Blendshapes: gesture.Frame{
			gesture.MouthSmileLeft: 0.9,
			gesture.BrowInnerUp:    0.9,
			gesture.JawOpen:        0.9,
		},
	})

	require.Len(t, events, 4)
	assert.Equal(t, gesture.KindToolCycle, events[0].Kind)
	assert.Equal(t, gesture.KindColorCycle, events[1].Kind)
	assert.Equal(t, gesture.KindDrawToggle, events[2].Kind)
	assert.Equal(t, gesture.KindCursorMove, events[3].Kind)
}

func TestEngine_DrawToggleScenario(t *testing.T) {
	e := New(DefaultConfig())
	frame := gesture.Frame{gesture.MouthOpen: 0.5, gesture.JawOpen: 0.1}

	assert.Equal(t, []gesture.Kind{gesture.KindDrawToggle}, discrete(e.Process(Input{Timestamp: at(0), Blendshapes: frame})))
	assert.Empty(t, discrete(e.Process(Input{Timestamp: at(400), Blendshapes: frame})))
	assert.Equal(t, []gesture.Kind{gesture.KindDrawToggle}, discrete(e.Process(Input{Timestamp: at(600), Blendshapes: frame})))
}

func TestEngine_ColorCycleNeedsStillHead(t *testing.T) {
	brow := gesture.Frame{gesture.BrowInnerUp: 0.9}

	t.Run("held still", func(t *testing.T) {
		e := New(DefaultConfig())
		for ms := 0; ms <= 250; ms += 25 {
			e.Process(Input{Timestamp: at(ms), Landmark: point(0.5, 0.5)})
		}
		events := e.Process(Input{Timestamp: at(260), Landmark: point(0.5, 0.5), Blendshapes: brow})
		assert.Equal(t, []gesture.Kind{gesture.KindColorCycle}, discrete(events))
	})

	t.Run("jittering", func(t *testing.T) {
		e := New(DefaultConfig())
		for i := 0; i < 200; i++ {
			x := 0.5
			if i%2 == 1 {
				x = 0.6
			}
			events := e.Process(Input{Timestamp: at(i * 25), Landmark: point(x, 0.5), Blendshapes: brow})
			require.Empty(t, discrete(events), "frame %d", i)
		}
	})
}

func TestEngine_CursorScenario(t *testing.T) {
	e := New(DefaultConfig())

	events := e.Process(Input{Timestamp: at(0), Landmark: point(0.4, 0.5)})
	require.Len(t, events, 1)
	assert.Equal(t, gesture.KindCursorMove, events[0].Kind)
	assert.InDelta(t, 59, events[0].X, 1e-9)
	assert.InDelta(t, 50, events[0].Y, 1e-9)
	assert.InDelta(t, 59, e.Cursor().X, 1e-9)
}

func TestEngine_MissingLandmarkKeepsStability(t *testing.T) {
	e := New(DefaultConfig())
	for ms := 0; ms <= 300; ms += 50 {
		e.Process(Input{Timestamp: at(ms), Landmark: point(0.5, 0.5)})
	}

	// Face mesh dropped for one frame: no cursor move, gate still open.
	events := e.Process(Input{Timestamp: at(320), Blendshapes: gesture.Frame{gesture.BrowOuterUpLeft: 0.8}})
	assert.Equal(t, []gesture.Event{gesture.ColorCycle()}, events)
}

func TestEngine_ClampsBackwardsTimestamps(t *testing.T) {
	e := New(DefaultConfig())
	frame := gesture.Frame{gesture.JawOpen: 0.9}

	require.Len(t, e.Process(Input{Timestamp: at(1000), Blendshapes: frame}), 1)
	// A frame from the past is treated as arriving at t=1000, inside the window.
	assert.Empty(t, e.Process(Input{Timestamp: at(100), Blendshapes: frame}))
	assert.Len(t, e.Process(Input{Timestamp: at(1501), Blendshapes: frame}), 1)

	assert.EqualValues(t, 1, e.Stats().ClampedTimestamps)
}

func TestEngine_Stats(t *testing.T) {
	e := New(DefaultConfig())
	e.Process(Input{Timestamp: at(0), Landmark: point(0.5, 0.5), Blendshapes: gesture.Frame{gesture.JawOpen: 0.9}})
	e.Process(Input{Timestamp: at(10), Landmark: point(0.5, 0.5)})

	stats := e.Stats()
	assert.EqualValues(t, 2, stats.Frames)
	assert.EqualValues(t, 1, stats.Events[gesture.KindDrawToggle])
	assert.EqualValues(t, 2, stats.Events[gesture.KindCursorMove])

	// The copy is detached from engine state.
	stats.Events[gesture.KindDrawToggle] = 99
	assert.EqualValues(t, 1, e.Stats().Events[gesture.KindDrawToggle])
}

func TestEngine_InstancesAreIsolated(t *testing.T) {
	a := New(DefaultConfig())
	b := New(DefaultConfig())
	frame := gesture.Frame{gesture.JawOpen: 0.9}

	require.Len(t, a.Process(Input{Timestamp: at(0), Blendshapes: frame}), 1)
	assert.Len(t, b.Process(Input{Timestamp: at(0), Blendshapes: frame}), 1)

	a.Process(Input{Timestamp: at(0), Landmark: point(0.1, 0.1)})
	assert.Equal(t, cursor.Center, b.Cursor())
}

func TestEngine_Reset(t *testing.T) {
	e := New(DefaultConfig())
	frame := gesture.Frame{gesture.JawOpen: 0.9}
	e.Process(Input{Timestamp: at(5000), Landmark: point(0.1, 0.1), Blendshapes: frame})

	e.Reset()
	assert.Equal(t, cursor.Center, e.Cursor())
	assert.Zero(t, e.Stats().Frames)
	// Earlier timestamps are accepted again after a reset.
	assert.Len(t, e.Process(Input{Timestamp: at(0), Blendshapes: frame}), 1)
	assert.Zero(t, e.Stats().ClampedTimestamps)
}
