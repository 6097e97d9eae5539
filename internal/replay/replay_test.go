package replay

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpatel2913/Faceable/internal/bus"
	"github.com/kpatel2913/Faceable/internal/canvas"
	"github.com/kpatel2913/Faceable/internal/config"
	"github.com/kpatel2913/Faceable/internal/cursor"
	"github.com/kpatel2913/Faceable/internal/engine"
	"github.com/kpatel2913/Faceable/internal/gesture"
	"github.com/kpatel2913/Faceable/internal/stream"
)

const sessionYAML = `
name: tool, colour, draw
frames:
  - t_ms: 0
    blendshapes: {mouthSmileLeft: 0.92}
    landmark: {x: 0.5, y: 0.5}
  - t_ms: 100
    blendshapes: {mouthSmileLeft: 0.95}
    landmark: {x: 0.5, y: 0.5}
  - t_ms: 300
    blendshapes: {browInnerUp: 0.9}
    landmark: {x: 0.5, y: 0.5}
  - t_ms: 400
    blendshapes: {jawOpen: 0.6}
  - t_ms: 450
    landmark: {x: 0.4, y: 0.5}
  - t_ms: 500
    landmark: {x: 0.3, y: 0.5}
  - t_ms: 550
    landmark: {x: 0.3, y: 0.4}
`

func TestParse(t *testing.T) {
	rec, err := Parse([]byte(sessionYAML))
	require.NoError(t, err)

	assert.Equal(t, "tool, colour, draw", rec.Name)
	require.Len(t, rec.Frames, 7)
	assert.Equal(t, 0.92, rec.Frames[0].Blendshapes["mouthSmileLeft"])
	assert.Nil(t, rec.Frames[3].Landmark)
	assert.Nil(t, rec.Frames[4].Blendshapes)
	assert.Equal(t, 550*time.Millisecond, rec.Duration())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{name: "no frames", yaml: "name: empty\nframes: []\n", err: ErrNoFrames},
		{name: "unknown shape", yaml: "frames:\n  - t_ms: 0\n    blendshapes: {grin: 0.9}\n", err: ErrUnknownShape},
		{name: "nan score", yaml: "frames:\n  - t_ms: 0\n    blendshapes: {jawOpen: .nan}\n", err: ErrBadValue},
		{name: "time past duration range", yaml: "frames:\n  - t_ms: 10000000000000\n", err: ErrBadValue},
		{name: "infinite landmark", yaml: "frames:\n  - t_ms: 0\n    landmark: {x: .inf, y: 0.5}\n", err: ErrBadValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := Parse([]byte("frames: [unclosed"))
	assert.Error(t, err)
}

func TestLoadAndSave(t *testing.T) {
	rec, err := Parse([]byte(sessionYAML))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rec.yaml")
	require.NoError(t, rec.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	rec, err := Parse([]byte(sessionYAML))
	require.NoError(t, err)

	result := Run(rec, engine.DefaultConfig(), nil, nil)

	// Second smile is inside the debounce window.
	assert.Equal(t, []gesture.Event{
		gesture.ToolCycle(),
		gesture.ColorCycle(),
		gesture.DrawToggle(),
	}, result.Discrete())

	assert.Equal(t, canvas.Eraser.ID, result.Snapshot.Tool)
	assert.Equal(t, canvas.DefaultPalette[1], result.Snapshot.Color)
	assert.True(t, result.Snapshot.Drawing)

	// 450 anchors, 500 and 550 each draw a segment with the eraser.
	require.Len(t, result.Strokes, 2)
	assert.True(t, result.Strokes[0].Erase)
	assert.Equal(t, canvas.Eraser.Width, result.Strokes[0].Width)
	assert.Equal(t, result.Strokes[0].To, result.Strokes[1].From)

	// Frame 3 has no landmark, so only its toggle is reported.
	var frame3 *FrameResult
	for i := range result.Frames {
		if result.Frames[i].Index == 3 {
			frame3 = &result.Frames[i]
		}
	}
	require.NotNil(t, frame3)
	assert.Equal(t, []gesture.Event{gesture.DrawToggle()}, frame3.Events)
}

func TestRun_IsDeterministic(t *testing.T) {
	rec, err := Parse([]byte(sessionYAML))
	require.NoError(t, err)

	a := Run(rec, engine.DefaultConfig(), nil, nil)
	b := Run(rec, engine.DefaultConfig(), nil, nil)
	assert.Equal(t, a, b)
}

func TestRun_CustomConfig(t *testing.T) {
	rec, err := Parse([]byte(sessionYAML))
	require.NoError(t, err)

	cfg := engine.DefaultConfig()
	cfg.Gesture.SmileThreshold = 0.99
	cfg.Gesture.DebounceWindow = 0

	result := Run(rec, cfg, nil, []string{"#000000", "#ffffff"})
	assert.Equal(t, []gesture.Event{gesture.ColorCycle(), gesture.DrawToggle()}, result.Discrete())
	assert.Equal(t, "#ffffff", result.Snapshot.Color)
	assert.Equal(t, canvas.Pen.ID, result.Snapshot.Tool)
}

func TestFrame_Input(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := Frame{
		TimeMs:      12.5,
		Blendshapes: map[string]float64{"jawOpen": 0.4},
		Landmark:    &cursor.Point{X: 0.2, Y: 0.8},
	}

	in := f.Input(base)
	assert.Equal(t, base.Add(12500*time.Microsecond), in.Timestamp)
	assert.Equal(t, 0.4, in.Blendshapes.Score(gesture.JawOpen))
	require.NotNil(t, in.Landmark)
	assert.Equal(t, *f.Landmark, *in.Landmark)

	// The input owns its landmark copy.
	f.Landmark.X = 0.9
	assert.Equal(t, 0.2, in.Landmark.X)

	assert.Equal(t, []gesture.Category{{Name: "jawOpen", Score: 0.4}}, f.Categories())
	assert.Nil(t, Frame{}.Categories())
}

func TestRemote_MatchesLocal(t *testing.T) {
	rec, err := Parse([]byte(sessionYAML))
	require.NoError(t, err)

	serverCfg := config.DefaultConfig().Server
	serverCfg.MaxFPS = 0
	srv := stream.NewServer(serverCfg, stream.SessionConfig{Engine: engine.DefaultConfig()}, bus.NewEventBus(), zerolog.Nop())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	u, err := stream.StreamURL(ts.URL, serverCfg.WSPath)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := stream.Dial(ctx, u, zerolog.Nop())
	require.NoError(t, err)
	defer c.Close()

	remote, err := Remote(ctx, c, rec, false)
	require.NoError(t, err)

	local := Run(rec, engine.DefaultConfig(), nil, nil)
	assert.Zero(t, remote.Dropped)
	assert.Equal(t, local.Discrete(), remote.Discrete())

	localEvents, remoteEvents := local.Events(), remote.Events()
	require.Len(t, remoteEvents, len(localEvents))
	for i := range localEvents {
		assert.Equal(t, localEvents[i].Kind, remoteEvents[i].Kind)
		assert.InDelta(t, localEvents[i].X, remoteEvents[i].X, 1e-9)
		assert.InDelta(t, localEvents[i].Y, remoteEvents[i].Y, 1e-9)
	}

	assert.Equal(t, local.Snapshot.Tool, remote.Snapshot.Tool)
	assert.Equal(t, local.Snapshot.Color, remote.Snapshot.Color)
	assert.Equal(t, local.Snapshot.Drawing, remote.Snapshot.Drawing)
	assert.Equal(t, local.Snapshot.Strokes, remote.Snapshot.Strokes)
	assert.InDelta(t, local.Snapshot.Cursor.X, remote.Snapshot.Cursor.X, 1e-9)
	assert.Len(t, remote.Strokes, len(local.Strokes))
}
